package usecase

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
)

// SweepIntentsUseCase is the fallback for callbacks that never arrive: it
// polls the gateway for every open intent and settles the ones the bank
// already considers paid. One bad order never aborts the rest of the pass.
type SweepIntentsUseCase struct {
	Gateway PaymentGateway
	Store   IntentStore
	Settle  *SettlePaymentUseCase
	MaxAge  time.Duration
}

func NewSweepIntentsUseCase(gateway PaymentGateway, store IntentStore, settle *SettlePaymentUseCase, maxAge time.Duration) *SweepIntentsUseCase {
	return &SweepIntentsUseCase{
		Gateway: gateway,
		Store:   store,
		Settle:  settle,
		MaxAge:  maxAge,
	}
}

// Execute runs one sweep pass and returns the number of intents still open
// afterwards.
func (uc *SweepIntentsUseCase) Execute(ctx context.Context) (int, error) {
	payments := uc.Store.Load()
	kept := uc.Store.Prune(payments, uc.MaxAge)

	// Aged-out intents are dropped one by one under their lead lock; a
	// blanket Save of the pruned map could clobber a concurrent reconcile.
	for leadID := range payments {
		if _, ok := kept[leadID]; !ok {
			uc.dropAged(leadID)
		}
	}

	for leadID, intent := range kept {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		status, err := uc.Gateway.GetOrderStatus(ctx, intent.OrderNumber)
		if err != nil {
			log.Printf("⚠️ sweep: status query for order %s (lead %s) failed: %v — skipping", intent.OrderNumber, leadID, err)
			continue
		}
		if status != alfabank.OrderStatusDeposited {
			continue
		}

		log.Printf("💰 sweep: order %s (lead %s) is deposited, settling", intent.OrderNumber, leadID)
		if err := uc.Settle.SettleSwept(ctx, leadID, intent); err != nil {
			log.Printf("⚠️ sweep: settling lead %s failed: %v — skipping", leadID, err)
		}
	}

	open := len(uc.Store.Load())
	log.Printf("🧾 sweep: pass complete, %d intent(s) still open", open)
	return open, nil
}

func (uc *SweepIntentsUseCase) dropAged(leadID string) {
	unlock := uc.Store.LockLead(leadID)
	defer unlock()

	intent, ok := uc.Store.Load()[leadID]
	if !ok || intent.Age(time.Now()) <= uc.MaxAge {
		return
	}
	if err := uc.Store.Delete(leadID); err != nil {
		log.Printf("⚠️ sweep: failed to persist prune of lead %s: %v", leadID, err)
	}
}
