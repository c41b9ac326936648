package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/amo-sbp-bridge/internal/usecase"
)

// SweepWorker runs the polling reconciliation pass on a timer, as the
// fallback for gateway callbacks that never arrive.
type SweepWorker struct {
	sweep        *usecase.SweepIntentsUseCase
	tickInterval time.Duration
}

func NewSweepWorker(sweep *usecase.SweepIntentsUseCase, tickInterval time.Duration) *SweepWorker {
	return &SweepWorker{
		sweep:        sweep,
		tickInterval: tickInterval,
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	log.Printf("🕒 sweep worker started (every %s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ sweep worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *SweepWorker) run(ctx context.Context) {
	open, err := w.sweep.Execute(ctx)
	if err != nil {
		log.Printf("❌ sweep worker: pass failed: %v", err)
		return
	}
	middleware.SetOpenIntents(open)
}
