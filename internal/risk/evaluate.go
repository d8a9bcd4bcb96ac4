package risk

import "github.com/ppiankov/piispectre/internal/pii"

const (
	highRatio            = 0.30
	mediumRatio          = 0.10
	highSensitivityCount = 3
)

// Evaluate scores one table from its classified columns.
func Evaluate(columns []pii.Classification) TableRisk {
	r := TableRisk{TotalColumns: len(columns)}

	highSensitivity := false
	for _, c := range columns {
		if !c.IsPII {
			continue
		}
		r.PIIColumns++
		if c.HasHighSensitivity() {
			highSensitivity = true
		}
	}
	r.PIIRatio = ratio(r.PIIColumns, r.TotalColumns)

	switch {
	case r.PIIColumns == 0:
		r.Level = LevelNone
	case r.PIIRatio > highRatio || (highSensitivity && r.PIIColumns >= highSensitivityCount):
		r.Level = LevelHigh
	case r.PIIRatio > mediumRatio:
		r.Level = LevelMedium
	default:
		r.Level = LevelLow
	}
	return r
}

// Aggregate returns the highest level among tables, or none for no tables.
func Aggregate(tables map[string]TableRisk) Level {
	overall := LevelNone
	for _, t := range tables {
		overall = Max(overall, t.Level)
	}
	return overall
}

// Summarize computes global totals, per-table risk and the overall verdict.
func Summarize(schema pii.Schema) Summary {
	s := Summary{TableRisks: make(map[string]TableRisk, len(schema))}
	for _, t := range schema {
		tr := Evaluate(t.Columns)
		s.TableRisks[t.Key] = tr
		s.TotalColumns += tr.TotalColumns
		s.PIIColumns += tr.PIIColumns
	}
	s.PIIRatio = ratio(s.PIIColumns, s.TotalColumns)
	s.OverallRisk = Aggregate(s.TableRisks)
	return s
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total)
}
