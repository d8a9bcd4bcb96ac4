package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/ppiankov/piispectre/internal/history"
	"github.com/ppiankov/piispectre/internal/postgres"
	"github.com/ppiankov/piispectre/internal/risk"
)

// Options tune how the service connects to targets.
type Options struct {
	ConnectTimeout time.Duration
	// SSLMode is used when a datasource does not set its own.
	SSLMode string
}

// Service runs scans and serves their history.
type Service struct {
	resolver     Resolver
	introspector Introspector
	history      history.Store
	opts         Options
}

// NewService wires a scan service.
func NewService(resolver Resolver, introspector Introspector, store history.Store, opts Options) *Service {
	return &Service{
		resolver:     resolver,
		introspector: introspector,
		history:      store,
		opts:         opts,
	}
}

var supportedEngines = map[string]bool{
	"postgres":   true,
	"postgresql": true,
}

// Scan introspects the datasource, scores it and records the result.
// History is written only after introspection and scoring succeed.
func (s *Service) Scan(ctx context.Context, datasourceID string) (*Result, error) {
	start := time.Now()

	ds, err := s.resolver.Resolve(ctx, datasourceID)
	if errors.Is(err, datasource.ErrNotFound) {
		return nil, notFound("datasource %q not found", datasourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve datasource: %w", err)
	}

	engine := strings.ToLower(strings.TrimSpace(ds.Type))
	if !supportedEngines[engine] {
		return nil, &Error{
			Kind: KindUnsupportedEngine,
			Msg:  fmt.Sprintf("scanner only supports Postgres (got %q)", ds.Type),
		}
	}

	cfg, err := s.connConfig(ds.Config)
	if err != nil {
		return nil, err
	}

	slog.Info("scan started", "datasource", ds.ID, "target", cfg.String())

	schema, err := s.introspector.Introspect(ctx, cfg)
	if err != nil {
		return nil, introspectionFailure(err)
	}

	summary := risk.Summarize(schema)

	entry, err := s.history.Append(ctx, ds.ID, summary, schema)
	if err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	slog.Info("scan finished",
		"datasource", ds.ID,
		"tables", len(schema),
		"columns", summary.TotalColumns,
		"pii", summary.PIIColumns,
		"risk", summary.OverallRisk,
		"history_entry", entry.ID,
		"duration", time.Since(start))

	return &Result{
		DatasourceID:   ds.ID,
		Type:           engine,
		Summary:        summary,
		Schema:         schema,
		HistoryEntryID: entry.ID,
	}, nil
}

// connConfig validates the stored config and fills defaults.
func (s *Service) connConfig(c datasource.Config) (postgres.ConnConfig, error) {
	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(c.Database) == "" {
		missing = append(missing, "database")
	}
	if strings.TrimSpace(c.User) == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return postgres.ConnConfig{}, &Error{
			Kind: KindInvalidConfig,
			Msg:  "missing connection info: " + strings.Join(missing, ", "),
		}
	}

	port, ok, err := c.PortNumber()
	if err != nil {
		return postgres.ConnConfig{}, &Error{Kind: KindInvalidConfig, Msg: "invalid connection info", Err: err}
	}
	if !ok {
		port = postgres.DefaultPort
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = s.opts.SSLMode
	}

	return postgres.ConnConfig{
		Host:           c.Host,
		Port:           port,
		Database:       c.Database,
		User:           c.User,
		Password:       c.Password,
		SSLMode:        sslmode,
		ConnectTimeout: s.opts.ConnectTimeout,
	}, nil
}

func introspectionFailure(err error) error {
	var ce *postgres.ConnectError
	if errors.As(err, &ce) {
		return &Error{Kind: KindConnection, Msg: "could not connect to Postgres", Err: err}
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindIntrospection, Msg: "error scanning schema", Err: err}
}

// ListHistory returns recorded scans, optionally for one datasource.
func (s *Service) ListHistory(ctx context.Context, datasourceID string) ([]history.Entry, error) {
	return s.history.List(ctx, datasourceID)
}

// GetHistoryEntry returns one recorded scan.
func (s *Service) GetHistoryEntry(ctx context.Context, id int) (history.Entry, error) {
	e, err := s.history.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return history.Entry{}, notFound("history entry %d not found", id)
	}
	return e, err
}

// ExportFilename is the download name for a history entry.
func ExportFilename(id int) string {
	return fmt.Sprintf("scan-history-%d.json", id)
}

// ExportHistoryEntry renders an entry as an indented JSON document and
// returns it with its download filename.
func (s *Service) ExportHistoryEntry(ctx context.Context, id int) (string, []byte, error) {
	e, err := s.GetHistoryEntry(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal history entry: %w", err)
	}
	return ExportFilename(id), append(data, '\n'), nil
}
