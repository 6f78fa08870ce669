// Package httpapi exposes the single HTTP surface this service owns: the
// scheduler-triggered sync endpoint. Everything else (dashboards, user
// registration, provider OAuth UI) is an external collaborator per spec.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"training-load-engine/internal/orchestrator"
)

const cloudSchedulerHeader = "X-Cloudscheduler"

// NewRouter returns a chi.Router exposing POST /sync, the fan-out trigger a
// scheduler (or an operator) hits to sync every athlete with stored provider
// credentials.
func NewRouter(o *orchestrator.Orchestrator, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))

	h := &handler{orchestrator: o, log: log}
	r.Post("/sync", h.triggerSync)

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
