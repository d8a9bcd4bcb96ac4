package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ppiankov/piispectre/internal/pii"
)

const columnsQuery = `
	SELECT
		table_schema,
		table_name,
		column_name,
		data_type
	FROM information_schema.columns
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		AND ($1::text[] IS NULL OR table_schema = ANY($1))
		AND ($2::text[] IS NULL OR NOT (table_schema = ANY($2)))
	ORDER BY table_schema, table_name, ordinal_position`

const closeTimeout = 5 * time.Second

// Introspector reads column metadata from a PostgreSQL catalog and
// classifies every column it finds.
type Introspector struct {
	Filter SchemaFilter
}

// NewIntrospector returns an Introspector restricted by filter.
func NewIntrospector(filter SchemaFilter) *Introspector {
	return &Introspector{Filter: filter}
}

// Introspect opens a single connection, reads information_schema.columns and
// returns classified columns keyed by "schema.table" in catalog order.
// The connection is closed before Introspect returns.
func (i *Introspector) Introspect(ctx context.Context, cfg ConnConfig) (pii.Schema, error) {
	connCfg, err := pgx.ParseConfig(cfg.connString())
	if err != nil {
		return nil, &ConnectError{Target: cfg.String(), Err: err}
	}
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, &ConnectError{Target: cfg.String(), Err: err}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := conn.Close(closeCtx); err != nil {
			slog.Debug("close connection", "target", cfg.String(), "error", err)
		}
	}()
	slog.Debug("connected", "target", cfg.String(), "version", conn.PgConn().ParameterStatus("server_version"))

	return i.readColumns(ctx, conn)
}

func (i *Introspector) readColumns(ctx context.Context, conn *pgx.Conn) (pii.Schema, error) {
	include, exclude := i.Filter.args()

	rows, err := conn.Query(ctx, columnsQuery, include, exclude)
	if err != nil {
		return nil, &IntrospectError{Op: "get columns", Err: err}
	}
	defer rows.Close()

	var schema pii.Schema
	for rows.Next() {
		var c pii.Column
		if err := rows.Scan(&c.Schema, &c.Table, &c.Name, &c.DataType); err != nil {
			return nil, &IntrospectError{Op: "scan column", Err: err}
		}
		schema.Add(pii.ClassifyColumn(c))
	}
	if err := rows.Err(); err != nil {
		return nil, &IntrospectError{Op: "read columns", Err: err}
	}
	slog.Debug("introspected", "tables", len(schema))
	return schema, nil
}
