package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/askdb/internal/ingest"
	"github.com/kalambet/askdb/internal/kb"
	"github.com/kalambet/askdb/internal/router"
)

const maxRequestBodySize = 1 << 20 // 1MB

// KnowledgeBase is the service the HTTP and MCP layers answer from.
type KnowledgeBase interface {
	Ask(ctx context.Context, question string) (*router.Result, error)
	Reload(ctx context.Context) (ingest.Report, error)
	Schema() string
	Version() string
}

type QueryRequest struct {
	Query string `json:"query"`
}

type SchemaResponse struct {
	Version string `json:"version"`
	Schema  string `json:"schema"`
}

type ReloadResponse struct {
	Version string   `json:"version"`
	Status  string   `json:"status"`
	Tables  int      `json:"tables"`
	FAQ     int      `json:"faq_entries"`
	Skipped []string `json:"skipped,omitempty"`
}

// NewHandler returns the HTTP API. /health is public; every other route
// requires the X-API-Key header to match apiKey.
func NewHandler(svc KnowledgeBase, apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(apiKey))
		r.Post("/query", handleQuery(svc))
		r.Get("/schema", handleSchema(svc))
		r.Post("/admin/reload", handleReload(svc))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleQuery(svc KnowledgeBase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "query is required")
			return
		}

		res, err := svc.Ask(r.Context(), req.Query)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, kb.ErrNotReady) {
				code = http.StatusServiceUnavailable
			}
			slog.Warn("query failed", "query", req.Query, "error", err,
				"request_id", middleware.GetReqID(r.Context()))
			httpError(w, code, "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, kb.NewAnswer(res))
	}
}

func handleSchema(svc KnowledgeBase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SchemaResponse{Version: svc.Version(), Schema: svc.Schema()})
	}
}

func handleReload(svc KnowledgeBase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Reload(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "reload failed: %v", err)
			return
		}
		resp := ReloadResponse{
			Version: report.Version,
			Status:  "reloaded",
			Tables:  len(report.Tables),
			FAQ:     report.FAQEntries,
		}
		for _, s := range report.Skipped {
			resp.Skipped = append(resp.Skipped, s.Error())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
