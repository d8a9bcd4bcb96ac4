package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore keeps history in a SQLite database. Appends run in an
// immediate transaction, so concurrent writers, including other
// processes, are serialised by the database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
//
// A file that is not a readable SQLite database is moved aside to
// path.corrupt-<timestamp> and replaced by an empty one, matching the
// degrade-to-empty policy of the file store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := openMigrated(path)
	if err == nil {
		return &SQLiteStore{db: db, now: time.Now}, nil
	}
	if !isCorrupt(err) {
		return nil, err
	}

	aside := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
	slog.Warn("corrupt history database, starting empty", "path", path, "moved_to", aside, "error", err)
	if rerr := os.Rename(path, aside); rerr != nil {
		return nil, fmt.Errorf("move corrupt history database: %w", rerr)
	}

	db, err = openMigrated(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func openMigrated(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// isCorrupt reports whether err means the file is not a usable database.
func isCorrupt(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Append assigns id count+1 inside a transaction and inserts the entry.
func (s *SQLiteStore) Append(ctx context.Context, datasourceID string, summary risk.Summary, schema pii.Schema) (Entry, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal summary: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal schema: %w", err)
	}
	tablesJSON, err := json.Marshal(schema.Refs())
	if err != nil {
		return Entry{}, fmt.Errorf("marshal table refs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_history`).Scan(&count); err != nil {
		return Entry{}, fmt.Errorf("count history: %w", err)
	}

	entry := Entry{
		ID:           count + 1,
		DatasourceID: datasourceID,
		ScannedAt:    s.now().UTC(),
		Summary:      summary,
		Schema:       schema,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO scan_history (id, datasource_id, scanned_at, summary, schema_json, tables_json) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DatasourceID, entry.ScannedAt.Format(time.RFC3339Nano), string(summaryJSON), string(schemaJSON), string(tablesJSON))
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

// List returns entries ordered by id. Rows whose payload cannot be decoded
// are skipped with a warning.
func (s *SQLiteStore) List(ctx context.Context, datasourceID string) ([]Entry, error) {
	query := `SELECT id, datasource_id, scanned_at, summary, schema_json, tables_json FROM scan_history`
	var args []any
	if datasourceID != "" {
		query += ` WHERE datasource_id = ?`
		args = append(args, datasourceID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			slog.Warn("skipping unreadable history row", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one entry by id.
func (s *SQLiteStore) Get(ctx context.Context, id int) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, datasource_id, scanned_at, summary, schema_json, tables_json FROM scan_history WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get history %d: %w", id, err)
	}
	return e, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e           Entry
		scannedAt   string
		summaryJSON string
		schemaJSON  string
		tablesJSON  string
	)
	if err := r.Scan(&e.ID, &e.DatasourceID, &scannedAt, &summaryJSON, &schemaJSON, &tablesJSON); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, scannedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse scanned_at: %w", err)
	}
	e.ScannedAt = t
	if err := json.Unmarshal([]byte(summaryJSON), &e.Summary); err != nil {
		return Entry{}, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &e.Schema); err != nil {
		return Entry{}, fmt.Errorf("decode schema: %w", err)
	}
	var refs []pii.TableRef
	if err := json.Unmarshal([]byte(tablesJSON), &refs); err != nil {
		return Entry{}, fmt.Errorf("decode table refs: %w", err)
	}
	e.Schema.ApplyRefs(refs)
	return e, nil
}
