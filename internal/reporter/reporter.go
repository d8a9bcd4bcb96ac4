package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/piispectre/internal/history"
	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
	"github.com/ppiankov/piispectre/internal/scan"
)

// Format controls report output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatSARIF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or sarif)", s)
	}
}

// Metadata holds report context.
type Metadata struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Finding is one PII column together with the risk of its table.
type Finding struct {
	TableKey  string         `json:"table"`
	Column    string         `json:"column"`
	DataType  string         `json:"type"`
	Reasons   []pii.Category `json:"pii_reason"`
	TableRisk risk.Level     `json:"table_risk"`
}

// Report wraps a scan result for rendering.
type Report struct {
	Metadata Metadata
	Result   *scan.Result
	Findings []Finding
}

// NewReport flattens the PII columns of a scan into findings, in schema order.
func NewReport(res *scan.Result, version string) Report {
	findings := []Finding{}
	for _, t := range res.Schema {
		level := res.Summary.TableRisks[t.Key].Level
		for _, c := range t.Columns {
			if !c.IsPII {
				continue
			}
			findings = append(findings, Finding{
				TableKey:  t.Key,
				Column:    c.Column.Name,
				DataType:  c.Column.DataType,
				Reasons:   c.Reasons,
				TableRisk: level,
			})
		}
	}

	return Report{
		Metadata: Metadata{
			Tool:      "piispectre",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Result:   res,
		Findings: findings,
	}
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report.Result)
	case FormatSARIF:
		return writeSARIF(w, report)
	default:
		return writeText(w, report)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var levelLabel = map[risk.Level]string{
	risk.LevelHigh:   "HIGH",
	risk.LevelMedium: "MEDIUM",
	risk.LevelLow:    "LOW",
	risk.LevelNone:   "NONE",
}

func writeText(w io.Writer, report *Report) error {
	res := report.Result
	color := isTTY(w)

	if len(res.Schema) == 0 {
		_, err := fmt.Fprintln(w, "No tables found.")
		return err
	}

	for _, t := range res.Schema {
		tr := res.Summary.TableRisks[t.Key]
		_, err := fmt.Fprintf(w, "%s %s  %d/%d pii columns (%.1f%%)\n",
			label(tr.Level, color), t.Key, tr.PIIColumns, tr.TotalColumns, tr.PIIRatio*100)
		if err != nil {
			return err
		}
		for _, c := range t.Columns {
			if !c.IsPII {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %-30s %-20s %s\n", c.Column.Name, c.Column.DataType, joinReasons(c.Reasons)); err != nil {
				return err
			}
		}
	}

	s := res.Summary
	_, err := fmt.Fprintf(w, "\nSummary: %d of %d columns look like PII (%.1f%%) across %d tables, overall risk %s (history entry %d)\n",
		s.PIIColumns, s.TotalColumns, s.PIIRatio*100, len(res.Schema), label(s.OverallRisk, color), res.HistoryEntryID)
	return err
}

func label(l risk.Level, color bool) string {
	text := "[" + levelLabel[l] + "]"
	if !color {
		return text
	}
	return levelColor[l] + text + colorReset
}

func joinReasons(reasons []pii.Category) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

// WriteHistory renders history entries as a table or JSON array.
func WriteHistory(w io.Writer, entries []history.Entry, format Format) error {
	if format == FormatJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		return writeJSON(w, entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No scans recorded.")
		return err
	}

	for _, e := range entries {
		_, err := fmt.Fprintf(w, "%4d  %-36s  %s  %-6s  %d/%d pii\n",
			e.ID, e.DatasourceID, e.ScannedAt.UTC().Format(time.RFC3339),
			e.Summary.OverallRisk, e.Summary.PIIColumns, e.Summary.TotalColumns)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteEntry renders one history entry: JSON as stored, text as a per-table breakdown.
func WriteEntry(w io.Writer, e history.Entry, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, e)
	}

	if _, err := fmt.Fprintf(w, "Scan %d of %s at %s: overall risk %s\n",
		e.ID, e.DatasourceID, e.ScannedAt.UTC().Format(time.RFC3339), e.Summary.OverallRisk); err != nil {
		return err
	}

	keys := make([]string, 0, len(e.Summary.TableRisks))
	for k := range e.Summary.TableRisks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tr := e.Summary.TableRisks[k]
		if _, err := fmt.Fprintf(w, "  %-40s %-6s %d/%d\n", k, tr.Level, tr.PIIColumns, tr.TotalColumns); err != nil {
			return err
		}
	}
	return nil
}
