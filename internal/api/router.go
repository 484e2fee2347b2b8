// Package api serves the watch-mode HTTP surface using chi.
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/vaultport/internal/journal"
)

// JournalReader lists recent journal entries.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Deps are the optional collaborators of the router.
type Deps struct {
	Metrics http.Handler  // mounted at /metrics when non-nil
	Journal JournalReader // mounted at /api/journal when non-nil
	Events  http.Handler  // mounted at /api/events when non-nil
	Ready   *atomic.Bool  // /health/ready answers 503 until set
}

// NewRouter creates a chi router with health, metrics, event and journal routes.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusBody("ok"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if d.Ready != nil && !d.Ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, statusBody("starting"))
			return
		}
		writeJSON(w, http.StatusOK, statusBody("ok"))
	})

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	if d.Events != nil {
		r.Get("/api/events", d.Events.ServeHTTP)
	}

	if d.Journal != nil {
		r.Get("/api/journal", func(w http.ResponseWriter, req *http.Request) {
			limit := 50
			if v := req.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n <= 0 {
					writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
					return
				}
				limit = n
			}
			entries, err := d.Journal.Recent(req.Context(), limit)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
				return
			}
			out := make([]entryDTO, 0, len(entries))
			for _, e := range entries {
				out = append(out, toDTO(e))
			}
			writeJSON(w, http.StatusOK, out)
		})
	}

	return r
}
