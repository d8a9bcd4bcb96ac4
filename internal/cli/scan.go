package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/piispectre/internal/reporter"
	"github.com/ppiankov/piispectre/internal/risk"
	"github.com/spf13/cobra"
)

func newScanCmd(info BuildInfo) *cobra.Command {
	var (
		format string
		failOn string
	)

	cmd := &cobra.Command{
		Use:   "scan <datasource-id>",
		Short: "Scan a registered datasource for PII columns and record the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reporter.ParseFormat(format)
			if err != nil {
				return err
			}
			threshold, err := parseFailOn(failOn)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.scanner.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			slog.Debug("scan recorded", "entry", res.HistoryEntryID)

			report := reporter.NewReport(res, info.Version)
			if err := reporter.Write(cmd.OutOrStdout(), &report, f); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if shouldFail(res.Summary.OverallRisk, threshold) {
				return &ExitError{Code: 2}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or sarif")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit 2 if overall risk is at or above this level: low, medium, high")

	return cmd
}

// parseFailOn accepts low, medium or high; empty disables the check.
func parseFailOn(s string) (risk.Level, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	l, err := risk.ParseLevel(s)
	if err != nil {
		return "", fmt.Errorf("--fail-on: %w", err)
	}
	if l == risk.LevelNone {
		return "", fmt.Errorf("--fail-on: level must be low, medium or high")
	}
	return l, nil
}

func shouldFail(overall, threshold risk.Level) bool {
	if threshold == "" {
		return false
	}
	return overall.AtLeast(threshold)
}
