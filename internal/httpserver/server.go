package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/ppiankov/piispectre/internal/history"
	"github.com/ppiankov/piispectre/internal/scan"
)

// Scanner runs scans and serves their history.
type Scanner interface {
	Scan(ctx context.Context, datasourceID string) (*scan.Result, error)
	ListHistory(ctx context.Context, datasourceID string) ([]history.Entry, error)
	GetHistoryEntry(ctx context.Context, id int) (history.Entry, error)
	ExportHistoryEntry(ctx context.Context, id int) (string, []byte, error)
}

// Datasources is the registry behind the datasource endpoints.
type Datasources interface {
	Create(ctx context.Context, in datasource.Input) (datasource.Datasource, error)
	List(ctx context.Context) ([]datasource.Datasource, error)
	Get(ctx context.Context, id string) (datasource.Datasource, error)
}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr         string
	APIKey             string
	RateLimitPerMinute float64
	ReadHeaderTimeout  time.Duration
}

// Server wraps the HTTP server with chi routing, middleware, and graceful shutdown.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	cfg        Config
	scanner    Scanner
	sources    Datasources
	limiter    *ipRateLimiter
}

// New creates a new Server wired with the given dependencies.
func New(cfg Config, scanner Scanner, sources Datasources, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:  logger,
		cfg:     cfg,
		scanner: scanner,
		sources: sources,
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newIPRateLimiter(cfg.RateLimitPerMinute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until it stops.
// Returns nil if the server was shut down gracefully via Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening",
		slog.String("addr", s.httpServer.Addr),
		slog.Bool("auth", s.cfg.APIKey != ""),
	)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
