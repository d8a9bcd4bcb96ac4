package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/ppiankov/piispectre/internal/fileutil"
)

// FileStore keeps datasources in a single JSON file. A missing or unreadable
// file reads as an empty list so a damaged registry never blocks the service.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Create registers a new datasource with a random id.
func (s *FileStore) Create(_ context.Context, in Input) (Datasource, error) {
	if err := in.Validate(); err != nil {
		return Datasource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	ds := Datasource{
		ID:     uuid.NewString(),
		Name:   in.Name,
		Type:   in.Type,
		Config: in.Config,
	}
	all = append(all, ds)
	if err := s.write(all); err != nil {
		return Datasource{}, err
	}
	return ds, nil
}

// List returns every datasource in creation order.
func (s *FileStore) List(_ context.Context) ([]Datasource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Get returns the datasource with the given id.
func (s *FileStore) Get(_ context.Context, id string) (Datasource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ds := range s.read() {
		if ds.ID == id {
			return ds, nil
		}
	}
	return Datasource{}, ErrNotFound
}

// Resolve looks up a datasource for scanning.
func (s *FileStore) Resolve(ctx context.Context, id string) (Datasource, error) {
	return s.Get(ctx, id)
}

func (s *FileStore) read() []Datasource {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read datasources, treating as empty", "path", s.path, "error", err)
		}
		return []Datasource{}
	}
	var all []Datasource
	if err := json.Unmarshal(data, &all); err != nil {
		slog.Warn("corrupt datasources file, treating as empty", "path", s.path, "error", err)
		return []Datasource{}
	}
	if all == nil {
		all = []Datasource{}
	}
	return all
}

func (s *FileStore) write(all []Datasource) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal datasources: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteAtomic(s.path, data, 0o600)
}
