package risk

import (
	"fmt"
	"strings"
)

// Level is the ordinal exposure risk of a table or a whole scan.
type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

var levelOrder = map[Level]int{
	LevelNone:   0,
	LevelLow:    1,
	LevelMedium: 2,
	LevelHigh:   3,
}

// Rank returns the level's position in none < low < medium < high.
// Unknown levels rank below none.
func (l Level) Rank() int {
	if r, ok := levelOrder[l]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether l is at or above threshold.
func (l Level) AtLeast(threshold Level) bool {
	return l.Rank() >= threshold.Rank()
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelOrder[l]; !ok {
		return "", fmt.Errorf("unknown risk level %q (want none, low, medium or high)", s)
	}
	return l, nil
}

// Max returns the higher of two levels.
func Max(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// TableRisk is the risk assessment of a single table.
type TableRisk struct {
	TotalColumns int     `json:"total_columns"`
	PIIColumns   int     `json:"pii_columns"`
	PIIRatio     float64 `json:"pii_ratio"`
	Level        Level   `json:"risk_level"`
}

// Summary aggregates a whole scan.
type Summary struct {
	TotalColumns int                  `json:"total_columns"`
	PIIColumns   int                  `json:"pii_columns"`
	PIIRatio     float64              `json:"pii_ratio"`
	OverallRisk  Level                `json:"overall_risk"`
	TableRisks   map[string]TableRisk `json:"table_risks"`
}
