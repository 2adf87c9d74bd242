// Package adminhttp exposes a read-only chi router over a sessionstore.Store
// for operators: a liveness probe and JSON session statistics, mirroring the
// shape (if not the scope) of a relay operator's admin HTTP surface.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/duskwire/secchan/obs/sessionstore"
)

// NewRouter builds the admin HTTP surface. startTime is reported in the
// /healthz response as process uptime.
func NewRouter(store *sessionstore.Store, startTime time.Time) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.List()
		if err != nil {
			log.Error().Err(err).Msg("[AdminHTTP] Failed to list session stats")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats)
	})

	r.Get("/stats/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		stat, ok, err := store.Get(id)
		if err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("[AdminHTTP] Failed to look up session stats")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, stat)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("[AdminHTTP] Failed to encode response")
	}
}
