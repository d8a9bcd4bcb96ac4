package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ppiankov/piispectre/internal/config"
	"github.com/ppiankov/piispectre/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	cfg        config.Config
)

// BuildInfo carries version metadata injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ExitError asks main to exit with a specific code without printing an error.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "piispectre",
		Short:         "PII scanner for PostgreSQL schemas",
		Long:          "Registers Postgres datasources, classifies their columns as likely PII by name, scores per-table risk, and keeps a history of scans.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load(cwd)
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyEnv(&cfg)

			level := slog.LevelWarn
			if cmd.Name() == "serve" {
				level = slog.LevelInfo
			}
			logging.Init(verbose, level, logging.Format(cfg.Log.Format), cmd.ErrOrStderr())
			slog.Debug("config loaded", "path", configPath, "project_file", config.Exists(cwd), "history", cfg.History.Driver)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default .piispectre.yml in cwd or home)")

	root.AddCommand(newVersionCmd(info))
	root.AddCommand(newServeCmd(info))
	root.AddCommand(newScanCmd(info))
	root.AddCommand(newDatasourceCmd())
	root.AddCommand(newHistoryCmd())

	return root
}

// applyEnv lets the environment override secrets and the bind address.
func applyEnv(c *config.Config) {
	if v := os.Getenv("PIISPECTRE_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("PIISPECTRE_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "piispectre %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
		},
	}
}

// Execute runs the root command.
func Execute(version, commit, date string) error {
	err := newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}).Execute()
	if err != nil {
		var ee *ExitError
		if !errors.As(err, &ee) {
			_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return err
}
