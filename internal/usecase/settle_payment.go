package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
)

// PaidTagName is the tag stamped on a lead when its payment settles.
const PaidTagName = "оплачено"

// CallbackInput is one verified gateway notification. Ephemeral; signature
// checking happens at the HTTP boundary before this is built.
type CallbackInput struct {
	GatewayOrderID string // mdOrder
	OrderNumber    string
	Operation      string
	Status         int
}

// SettlePaymentUseCase applies terminal payment outcomes to the store and
// the CRM. Fed by verified callbacks and by the polling sweep.
type SettlePaymentUseCase struct {
	CRM      CRMClient
	Store    IntentStore
	Notifier PaymentNotifier // nil when mail is not configured

	PaidStatusID   int
	FailedStatusID int
}

func NewSettlePaymentUseCase(crm CRMClient, store IntentStore, notifier PaymentNotifier,
	paidStatusID, failedStatusID int) *SettlePaymentUseCase {
	return &SettlePaymentUseCase{
		CRM:            crm,
		Store:          store,
		Notifier:       notifier,
		PaidStatusID:   paidStatusID,
		FailedStatusID: failedStatusID,
	}
}

// Execute applies a callback event. Events that match no stored intent are
// logged and ignored: the order either never existed or already settled,
// and bouncing them would only trigger gateway retry storms.
func (uc *SettlePaymentUseCase) Execute(ctx context.Context, in CallbackInput) error {
	leadID, ok := uc.findLead(uc.Store.Load(), in)
	if !ok {
		log.Printf("⚠️ settle: no intent matches mdOrder=%s orderNumber=%s (operation %s), ignoring",
			in.GatewayOrderID, in.OrderNumber, in.Operation)
		return nil
	}

	unlock := uc.Store.LockLead(leadID)
	defer unlock()

	// Reload under the lock; the intent can settle or get replaced between
	// the lookup and here.
	payments := uc.Store.Load()
	intent, ok := payments[leadID]
	if !ok || intent.OrderNumber != in.OrderNumber || intent.OrderID != in.GatewayOrderID {
		log.Printf("⚠️ settle: intent for lead %s changed under us, ignoring callback (order %s)", leadID, in.OrderNumber)
		return nil
	}

	audit := fmt.Sprintf("Уведомление от банка: операция %s, статус %d, заказ %s (mdOrder: %s)",
		in.Operation, in.Status, in.OrderNumber, in.GatewayOrderID)
	if err := uc.CRM.AddNote(ctx, leadID, audit); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("settle: audit note for lead %s", leadID), err)
	}

	switch {
	case in.Operation == alfabank.OperationDeposited && in.Status == alfabank.CallbackStatusSuccess:
		return uc.markPaid(ctx, leadID, intent, "callback")

	case in.Operation == alfabank.OperationDeclinedTimeout:
		return uc.markDeclined(ctx, leadID, intent)

	default:
		log.Printf("ℹ️ settle: operation %s/status %d for lead %s carries no state change", in.Operation, in.Status, leadID)
		return nil
	}
}

// SettleSwept marks an intent paid on behalf of the polling sweep, after
// the gateway reported the order deposited. Locks and re-checks the intent
// itself, so the sweep can call it while iterating a stale snapshot.
func (uc *SettlePaymentUseCase) SettleSwept(ctx context.Context, leadID string, swept entity.PaymentIntent) error {
	unlock := uc.Store.LockLead(leadID)
	defer unlock()

	intent, ok := uc.Store.Load()[leadID]
	if !ok || intent.OrderNumber != swept.OrderNumber {
		log.Printf("⚠️ settle: swept intent for lead %s no longer current, skipping", leadID)
		return nil
	}
	return uc.markPaid(ctx, leadID, intent, "sweep")
}

// markPaid runs the terminal success transition: tag, CRM status, intent
// removal. Checks the lead's live CRM status first so duplicate callbacks
// and sweep/callback overlap skip the CRM writes.
func (uc *SettlePaymentUseCase) markPaid(ctx context.Context, leadID string, intent entity.PaymentIntent, via string) error {
	lead, err := uc.CRM.GetLead(ctx, leadID)
	if err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("settle: fetch lead %s", leadID), err)
	}
	if lead.StatusID == uc.PaidStatusID {
		// The CRM side is done, but the intent still has to go: leaving it
		// open would keep every sweep pass re-polling a settled order.
		log.Printf("⏭️ settle: lead %s already in paid status, closing intent (via %s)", leadID, via)
		if err := uc.Store.Delete(leadID); err != nil {
			log.Printf("⚠️ settle: failed to persist removal of lead %s intent: %v", leadID, err)
		}
		return nil
	}

	if err := uc.CRM.AddTag(ctx, leadID, PaidTagName); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("settle: tag lead %s", leadID), err)
	}
	if err := uc.CRM.ChangeStatus(ctx, leadID, uc.PaidStatusID); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("settle: move lead %s to paid status", leadID), err)
	}

	note := fmt.Sprintf("Оплата получена: заказ %s на сумму %d коп.", intent.OrderNumber, intent.Amount)
	if err := uc.CRM.AddNote(ctx, leadID, note); err != nil {
		// The transition already happened; a missing note is not worth
		// failing the settlement over.
		log.Printf("⚠️ settle: paid note for lead %s failed: %v", leadID, err)
	}

	if err := uc.Store.Delete(leadID); err != nil {
		log.Printf("⚠️ settle: failed to persist removal of lead %s intent: %v", leadID, err)
	}

	if uc.Notifier != nil {
		if err := uc.Notifier.SendPaymentReceived(leadID, lead.Name, intent.OrderNumber, intent.Amount); err != nil {
			log.Printf("⚠️ settle: payment notice for lead %s failed: %v", leadID, err)
		}
	}

	middleware.RecordSettlement(via)
	log.Printf("✅ settle: lead %s paid via %s (order %s, %d kopeks)", leadID, via, intent.OrderNumber, intent.Amount)
	return nil
}

// markDeclined moves the lead to the failed status but keeps the intent:
// the gateway can still deliver a later success for a timed-out order, and
// age-based pruning is the only thing that ever drops it.
func (uc *SettlePaymentUseCase) markDeclined(ctx context.Context, leadID string, intent entity.PaymentIntent) error {
	if err := uc.CRM.ChangeStatus(ctx, leadID, uc.FailedStatusID); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("settle: move lead %s to failed status", leadID), err)
	}

	intent.Status = entity.IntentDeclined
	if err := uc.Store.Put(leadID, intent); err != nil {
		log.Printf("⚠️ settle: failed to persist declined mark for lead %s: %v", leadID, err)
	}

	log.Printf("🚫 settle: lead %s declined/timed out (order %s), intent retained", leadID, intent.OrderNumber)
	return nil
}

func (uc *SettlePaymentUseCase) findLead(payments map[string]entity.PaymentIntent, in CallbackInput) (string, bool) {
	for leadID, intent := range payments {
		if intent.OrderID == in.GatewayOrderID && intent.OrderNumber == in.OrderNumber {
			return leadID, true
		}
	}
	return "", false
}
