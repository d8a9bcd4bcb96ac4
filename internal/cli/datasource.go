package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/spf13/cobra"
)

func newDatasourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasource",
		Aliases: []string{"ds"},
		Short:   "Manage registered datasources",
	}
	cmd.AddCommand(newDatasourceAddCmd())
	cmd.AddCommand(newDatasourceListCmd())
	cmd.AddCommand(newDatasourceShowCmd())
	return cmd
}

func newDatasourceAddCmd() *cobra.Command {
	var (
		in   datasource.Input
		port string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a datasource",
		Long:  "Register a datasource. Pass the password through PIISPECTRE_DS_PASSWORD rather than --password.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Config.Port = json.Number(port)
			if in.Config.Password == "" {
				in.Config.Password = os.Getenv("PIISPECTRE_DS_PASSWORD")
			}

			store := datasource.NewFileStore(cfg.DatasourcesFile)
			ds, err := store.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("add datasource: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), ds.Redacted())
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&in.Type, "type", "postgres", "engine type")
	cmd.Flags().StringVar(&in.Config.Host, "host", "", "database host")
	cmd.Flags().StringVar(&port, "port", "", "database port (default 5432)")
	cmd.Flags().StringVar(&in.Config.Database, "database", "", "database name")
	cmd.Flags().StringVar(&in.Config.User, "user", "", "database user")
	cmd.Flags().StringVar(&in.Config.Password, "password", "", "database password; prefer PIISPECTRE_DS_PASSWORD, flag values show up in ps and shell history")
	cmd.Flags().StringVar(&in.Config.SSLMode, "sslmode", "", "libpq sslmode (default from config)")

	return cmd
}

func newDatasourceListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered datasources",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datasource.NewFileStore(cfg.DatasourcesFile)
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			redacted := make([]datasource.Datasource, 0, len(all))
			for _, ds := range all {
				redacted = append(redacted, ds.Redacted())
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), redacted)
			}
			return writeDatasourceTable(cmd.OutOrStdout(), redacted)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func newDatasourceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one datasource with its password redacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datasource.NewFileStore(cfg.DatasourcesFile)
			ds, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("datasource %q: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), ds.Redacted())
		},
	}
}

func writeDatasourceTable(w io.Writer, all []datasource.Datasource) error {
	if len(all) == 0 {
		_, err := fmt.Fprintln(w, "No datasources registered.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTYPE\tTARGET")
	for _, ds := range all {
		target := fmt.Sprintf("%s@%s/%s", ds.Config.User, ds.Config.Host, ds.Config.Database)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ds.ID, ds.Name, ds.Type, target)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
