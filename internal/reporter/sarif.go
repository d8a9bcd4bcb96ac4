package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
)

// SARIF 2.1.0 types, the subset needed for valid output.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

var ruleDescriptions = map[pii.Category]string{
	pii.CategoryEmail:         "Column name suggests an email address",
	pii.CategoryPhone:         "Column name suggests a phone number or contact detail",
	pii.CategoryIPAddress:     "Column name suggests an IP address",
	pii.CategoryUserName:      "Column name suggests a user's name",
	pii.CategoryPostalAddress: "Column name suggests a postal address",
	pii.CategoryCardNumber:    "Column name suggests a payment card number",
	pii.CategoryNationalID:    "Column name suggests a national identifier",
}

var levelToSARIF = map[risk.Level]string{
	risk.LevelHigh:   "error",
	risk.LevelMedium: "warning",
	risk.LevelLow:    "note",
	risk.LevelNone:   "note",
}

func ruleID(c pii.Category) string {
	return "piispectre/" + strings.ToUpper(string(c))
}

// writeSARIF emits one result per PII column. The rule is the column's
// first category; the level follows the risk of its table.
func writeSARIF(w io.Writer, report *Report) error {
	used := make(map[pii.Category]bool)
	for _, f := range report.Findings {
		if len(f.Reasons) > 0 {
			used[f.Reasons[0]] = true
		}
	}

	rules := make([]sarifRule, 0, len(used))
	for _, c := range pii.Categories() {
		if !used[c] {
			continue
		}
		rules = append(rules, sarifRule{
			ID:               ruleID(c),
			ShortDescription: sarifMessage{Text: ruleDescriptions[c]},
			DefaultConfig:    sarifRuleDefaults{Level: "warning"},
		})
	}

	results := []sarifResult{}
	for _, f := range report.Findings {
		if len(f.Reasons) == 0 {
			continue
		}
		level := levelToSARIF[f.TableRisk]
		if level == "" {
			level = "note"
		}

		results = append(results, sarifResult{
			RuleID: ruleID(f.Reasons[0]),
			Level:  level,
			Message: sarifMessage{Text: fmt.Sprintf("column %q (%s) looks like PII [%s]; table risk %s",
				f.Column, f.DataType, joinReasons(f.Reasons), f.TableRisk)},
			Locations: []sarifLocation{
				{
					LogicalLocations: []sarifLogicalLocation{
						{
							Name:               f.Column,
							FullyQualifiedName: f.TableKey + "." + f.Column,
							Kind:               "database/column",
						},
					},
				},
			},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "piispectre",
						Version:        report.Metadata.Version,
						InformationURI: "https://github.com/ppiankov/piispectre",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return nil
}
