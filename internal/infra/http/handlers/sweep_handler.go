package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
)

// Sweeper runs one polling reconciliation pass.
type Sweeper interface {
	Execute(ctx context.Context) (int, error)
}

// SweepHandler lets an operator trigger a pass outside the timer.
type SweepHandler struct {
	Sweep Sweeper
}

func NewSweepHandler(sweep Sweeper) *SweepHandler {
	return &SweepHandler{Sweep: sweep}
}

func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	open, err := h.Sweep.Execute(r.Context())
	if err != nil {
		log.Printf("❌ sweep: manual pass failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	middleware.SetOpenIntents(open)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "open_intents": open})
}
