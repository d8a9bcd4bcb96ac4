package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
)

// ErrNotFound is returned by Get when no entry has the requested id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded scan. Entries are never updated or deleted.
type Entry struct {
	ID           int          `json:"id"`
	DatasourceID string       `json:"datasource_id"`
	ScannedAt    time.Time    `json:"scanned_at"`
	Summary      risk.Summary `json:"summary"`
	Schema       pii.Schema   `json:"schema"`
}

type entryAlias Entry

type storedEntry struct {
	entryAlias
	Tables []pii.TableRef `json:"tables"`
}

// MarshalJSON adds the schema and table names of every table so that keys
// containing dots reload correctly.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedEntry{entryAlias: entryAlias(e), Tables: e.Schema.Refs()})
}

// UnmarshalJSON restores names from the recorded table refs when present.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var st storedEntry
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	*e = Entry(st.entryAlias)
	e.Schema.ApplyRefs(st.Tables)
	return nil
}

// Store is an append-only log of scan results.
type Store interface {
	// Append records a scan and returns the stored entry with its new id.
	Append(ctx context.Context, datasourceID string, summary risk.Summary, schema pii.Schema) (Entry, error)
	// List returns entries in append order, filtered by datasource when
	// datasourceID is non-empty.
	List(ctx context.Context, datasourceID string) ([]Entry, error)
	// Get returns the entry with the given id or ErrNotFound.
	Get(ctx context.Context, id int) (Entry, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store for driver rooted at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(path), nil
	case DriverSQLite:
		st, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q (want file or sqlite)", driver)
	}
}

func filter(entries []Entry, datasourceID string) []Entry {
	if datasourceID == "" {
		return entries
	}
	out := []Entry{}
	for _, e := range entries {
		if e.DatasourceID == datasourceID {
			out = append(out, e)
		}
	}
	return out
}
