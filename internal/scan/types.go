package scan

import (
	"context"

	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/postgres"
	"github.com/ppiankov/piispectre/internal/risk"
)

// Resolver looks up datasources by id.
type Resolver interface {
	Resolve(ctx context.Context, id string) (datasource.Datasource, error)
}

// Introspector reads and classifies the columns of a target database.
type Introspector interface {
	Introspect(ctx context.Context, cfg postgres.ConnConfig) (pii.Schema, error)
}

// Result is the outcome of a successful scan.
type Result struct {
	DatasourceID   string       `json:"datasource_id"`
	Type           string       `json:"type"`
	Summary        risk.Summary `json:"summary"`
	Schema         pii.Schema   `json:"schema"`
	HistoryEntryID int          `json:"history_entry_id"`
}
