package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ppiankov/piispectre/internal/fileutil"
	"github.com/ppiankov/piispectre/internal/reporter"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded scans",
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryExportCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		datasourceID string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded scans in the order they were taken",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.scanner.ListHistory(cmd.Context(), datasourceID)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			return reporter.WriteHistory(cmd.OutOrStdout(), entries, reporter.Format(format))
		},
	}

	cmd.Flags().StringVar(&datasourceID, "datasource", "", "only scans of this datasource id")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one recorded scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			e, err := a.scanner.GetHistoryEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			return reporter.WriteEntry(cmd.OutOrStdout(), e, reporter.Format(format))
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <entry-id>",
		Short: "Export a recorded scan as scan-history-<id>.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			name, data, err := a.scanner.ExportHistoryEntry(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = name
			}
			if err := fileutil.WriteAtomic(output, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			slog.Info("history exported", "entry", id, "path", output)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, - for stdout (default scan-history-<id>.json)")
	return cmd
}

func parseEntryID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid history entry id %q", s)
	}
	return id, nil
}
