package cli

import (
	"fmt"

	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/ppiankov/piispectre/internal/history"
	"github.com/ppiankov/piispectre/internal/postgres"
	"github.com/ppiankov/piispectre/internal/scan"
)

// app holds the stores and the scan service built from the loaded config.
type app struct {
	sources *datasource.FileStore
	history history.Store
	scanner *scan.Service
}

func openApp() (*app, error) {
	sources := datasource.NewFileStore(cfg.DatasourcesFile)

	store, err := history.Open(cfg.History.Driver, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	introspector := postgres.NewIntrospector(postgres.SchemaFilter{
		Include: cfg.Scan.IncludeSchemas,
		Exclude: cfg.Scan.ExcludeSchemas,
	})

	svc := scan.NewService(sources, introspector, store, scan.Options{
		ConnectTimeout: cfg.ConnectTimeout(),
		SSLMode:        cfg.Scan.SSLMode,
	})

	return &app{sources: sources, history: store, scanner: svc}, nil
}

func (a *app) Close() error {
	return a.history.Close()
}
