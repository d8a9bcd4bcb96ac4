package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/piispectre/internal/datasource"
	"github.com/ppiankov/piispectre/internal/scan"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, errorResponse{Error: kind, Detail: detail})
}

// statusFor maps scan failures to HTTP status codes.
func statusFor(kind scan.Kind) int {
	switch {
	case kind == scan.KindNotFound:
		return http.StatusNotFound
	case kind.ClientError():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	kind := scan.KindOf(err)
	status := statusFor(kind)
	if kind == "" {
		s.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, status, "internal", "internal error")
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
	writeError(w, status, string(kind), err.Error())
}

// handleHealth always responds 200 while the process is up.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "piispectre: PII scanning API"})
	}
}

// --- Datasource endpoints ---

func (s *Server) handleCreateDatasource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in datasource.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		if err := in.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		ds, err := s.sources.Create(r.Context(), in)
		if err != nil {
			s.logger.Error("failed to create datasource", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, ds.Redacted())
	}
}

func (s *Server) handleListDatasources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := s.sources.List(r.Context())
		if err != nil {
			s.logger.Error("failed to list datasources", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		resp := make([]datasource.Datasource, 0, len(all))
		for _, ds := range all {
			resp = append(resp, ds.Redacted())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleGetDatasource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ds, err := s.sources.Get(r.Context(), id)
		if errors.Is(err, datasource.ErrNotFound) {
			writeError(w, http.StatusNotFound, string(scan.KindNotFound), "datasource "+strconv.Quote(id)+" not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to get datasource", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ds.Redacted())
	}
}

// --- Scan endpoints ---

func (s *Server) handleScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A started scan runs to completion even if the client goes away;
		// the connect timeout still bounds unreachable hosts.
		ctx := context.WithoutCancel(r.Context())
		res, err := s.scanner.Scan(ctx, chi.URLParam(r, "id"))
		if err != nil {
			s.writeScanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.scanner.ListHistory(r.Context(), r.URL.Query().Get("datasource_id"))
		if err != nil {
			s.writeScanError(w, err)
			return
		}
		if entries == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func entryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "entryID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid history entry id "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		e, err := s.scanner.GetHistoryEntry(r.Context(), id)
		if err != nil {
			s.writeScanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) handleExportHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		name, data, err := s.scanner.ExportHistoryEntry(r.Context(), id)
		if err != nil {
			s.writeScanError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
