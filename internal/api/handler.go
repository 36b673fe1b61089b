package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/savagelysubtle/archivum/internal/cache"
	"github.com/savagelysubtle/archivum/internal/extract"
)

const maxRequestBodySize = 10 << 20 // base64 payloads inflate by ~4/3

const maxBatchPaths = 1000

// CacheAdmin abstracts cache maintenance for the API layer.
type CacheAdmin interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Purge(ctx context.Context) error
}

// AppDeps holds dependencies for the HTTP handlers.
type AppDeps struct {
	Engine      *extract.Engine
	Registry    *extract.Registry
	Cache       CacheAdmin // optional; if nil, cache endpoints report a conflict
	Token       string     // optional; if empty, the API is unauthenticated
	Concurrency int        // default batch concurrency
	Version     string
}

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	Path          string `json:"path"`
	MIMEType      string `json:"mime_type,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	Paths       []string `json:"paths"`
	Concurrency int      `json:"concurrency,omitempty"`
}

// NewAppHandler creates the main HTTP handler with all routes registered.
// The health endpoint stays open so probes work with auth enabled.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/extract", handleExtract(deps))
		r.Post("/batch", handleBatch(deps))
		r.Get("/extractors", handleListExtractors(deps))
		r.Get("/cache/stats", handleCacheStats(deps))
		r.Delete("/cache", handleCachePurge(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	}
}

func handleExtract(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}

		var opts []extract.ExtractOption
		if req.MIMEType != "" {
			opts = append(opts, extract.WithMIMEType(req.MIMEType))
		}
		if req.ContentBase64 != "" {
			content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "content_base64 is not valid base64")
				return
			}
			opts = append(opts, extract.WithContent(content))
		}

		// Extraction failures land in the record's error field, not the
		// HTTP status.
		rec := deps.Engine.ExtractOne(r.Context(), req.Path, opts...)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

func handleBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Paths) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "paths must not be empty")
			return
		}
		if len(req.Paths) > maxBatchPaths {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "too many paths: %d (max %d)", len(req.Paths), maxBatchPaths)
			return
		}

		concurrency := req.Concurrency
		if concurrency <= 0 {
			concurrency = deps.Concurrency
		}

		results := deps.Engine.ExtractMany(r.Context(), req.Paths, concurrency)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"batch_id": uuid.New().String(),
			"count":    len(results),
			"results":  results,
		})
	}
}

func handleListExtractors(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regs := deps.Registry.All()
		if regs == nil {
			regs = []extract.Registration{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(regs)
	}
}

func handleCacheStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cache == nil {
			httpError(w, http.StatusConflict, "cache_disabled", "no cache backend configured")
			return
		}

		stats, err := deps.Cache.Stats(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read cache stats: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func handleCachePurge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cache == nil {
			httpError(w, http.StatusConflict, "cache_disabled", "no cache backend configured")
			return
		}

		if err := deps.Cache.Purge(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to purge cache: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "purged"})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
