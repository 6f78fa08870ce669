package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/orchestrator"
)

type handler struct {
	orchestrator *orchestrator.Orchestrator
	log          zerolog.Logger
}

// triggerSync implements spec.md §6's scheduler trigger: 401 without the
// identifying header, 500 on an unrecoverable orchestrator failure, else 200
// with the per-athlete summary.
func (h *handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(cloudSchedulerHeader) == "" {
		http.Error(w, `{"error":"missing scheduler header"}`, http.StatusUnauthorized)
		return
	}

	summary, err := h.orchestrator.SyncAll(r.Context(), time.Now())
	if err != nil {
		h.log.Error().Err(err).Msg("scheduled sync failed")
		http.Error(w, `{"error":"sync failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}
