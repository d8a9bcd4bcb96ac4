package httpserver

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleRoot())
	r.Get("/health", s.handleHealth())

	r.Route("/api", func(api chi.Router) {
		if s.limiter != nil {
			api.Use(s.limiter.Middleware)
		}
		if s.cfg.APIKey != "" {
			api.Use(s.apiKeyAuth)
		}

		api.Post("/datasource", s.handleCreateDatasource())
		api.Get("/datasource", s.handleListDatasources())
		api.Get("/datasource/{id}", s.handleGetDatasource())

		api.Get("/scan/history", s.handleListHistory())
		api.Get("/scan/history/{entryID}", s.handleGetHistory())
		api.Get("/scan/history/{entryID}/export", s.handleExportHistory())

		api.Get("/scan/{id}", s.handleScan())
		api.Post("/scan/{id}", s.handleScan())
	})

	s.router = r
}

// apiKeyAuth rejects requests whose X-API-Key header does not match the configured key.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	want := []byte(s.cfg.APIKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("X-API-Key"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
