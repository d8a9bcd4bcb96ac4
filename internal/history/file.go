package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/piispectre/internal/fileutil"
	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
)

// FileStore keeps the whole history as one JSON array and rewrites it on
// every append.
//
// Reads degrade to empty: a missing, empty or corrupt file is treated as no
// history so new scans can still be recorded. The next append then starts
// again at id 1 and replaces the damaged file. Availability of scanning wins
// over integrity of old history here; use the sqlite driver when that is the
// wrong trade.
//
// The mutex serialises writers within one process only. Two processes
// appending to the same file can still lose an update.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Append assigns id len(history)+1, stamps the current UTC time and
// rewrites the file.
func (s *FileStore) Append(_ context.Context, datasourceID string, summary risk.Summary, schema pii.Schema) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.read()
	entry := Entry{
		ID:           len(entries) + 1,
		DatasourceID: datasourceID,
		ScannedAt:    s.now().UTC(),
		Summary:      summary,
		Schema:       schema,
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("marshal history: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write history: %w", err)
	}
	return entry, nil
}

// List returns entries in append order.
func (s *FileStore) List(_ context.Context, datasourceID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(s.read(), datasourceID), nil
}

// Get is a linear lookup by id.
func (s *FileStore) Get(_ context.Context, id int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.read() {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Close is a no-op; the file is only open during reads and writes.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read history, treating as empty", "path", s.path, "error", err)
		}
		return []Entry{}
	}
	if len(data) == 0 {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("corrupt history file, treating as empty", "path", s.path, "error", err)
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}
