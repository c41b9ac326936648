package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
)

// Outcome tells the caller what a reconciliation pass actually did, so
// policy no-ops never travel as errors.
type Outcome string

const (
	OutcomeSkipped   Outcome = "SKIPPED"   // pipeline/status guard rejected the event
	OutcomeNoAmount  Outcome = "NO_AMOUNT" // lead has no positive budget
	OutcomeUnchanged Outcome = "UNCHANGED" // intent exists with the same amount
	OutcomeIssued    Outcome = "ISSUED"    // first link for this lead
	OutcomeReissued  Outcome = "REISSUED"  // amount drifted, link replaced
	OutcomeResumed   Outcome = "RESUMED"   // link existed, pending CRM write completed
)

type ReconcileLeadInput struct {
	LeadID     string
	StatusID   int
	PipelineID int
}

// ReconcileLeadUseCase issues at most one live payment link per lead:
// webhook duplicates are no-ops, amount drift replaces the stored intent.
type ReconcileLeadUseCase struct {
	CRM     CRMClient
	Gateway PaymentGateway
	Store   IntentStore

	PipelineID       int
	AllowedStatusIDs []int
	CustomFieldID    int
}

func NewReconcileLeadUseCase(crm CRMClient, gateway PaymentGateway, store IntentStore,
	pipelineID int, allowedStatusIDs []int, customFieldID int) *ReconcileLeadUseCase {
	return &ReconcileLeadUseCase{
		CRM:              crm,
		Gateway:          gateway,
		Store:            store,
		PipelineID:       pipelineID,
		AllowedStatusIDs: allowedStatusIDs,
		CustomFieldID:    customFieldID,
	}
}

func (uc *ReconcileLeadUseCase) Execute(ctx context.Context, input ReconcileLeadInput) (Outcome, error) {
	log.Printf("🔄 reconcile: lead %s (status %d, pipeline %d)", input.LeadID, input.StatusID, input.PipelineID)

	// Only leads moved into the configured invoicing stage qualify. Checked
	// against the webhook payload, before any external call.
	if input.PipelineID != uc.PipelineID || !uc.statusAllowed(input.StatusID) {
		log.Printf("⏭️ reconcile: lead %s outside target pipeline/status, skipping", input.LeadID)
		return OutcomeSkipped, nil
	}

	lead, err := uc.CRM.GetLead(ctx, input.LeadID)
	if err != nil {
		return "", NewTechnicalError(CodeExternalCall, fmt.Sprintf("reconcile: fetch lead %s", input.LeadID), err)
	}

	amount := lead.AmountKopeks()
	if amount <= 0 {
		log.Printf("⚠️ reconcile: lead %s has no budget set, nothing to charge", lead.ID)
		return OutcomeNoAmount, nil
	}

	unlock := uc.Store.LockLead(lead.ID)
	defer unlock()

	payments := uc.Store.Load()
	existing, exists := payments[lead.ID]

	if exists && existing.Amount == amount {
		if !existing.CRMPending {
			log.Printf("⏭️ reconcile: lead %s already has a link for %d kopeks, skipping", lead.ID, amount)
			return OutcomeUnchanged, nil
		}
		// The link was minted on a previous attempt but the CRM write
		// never landed. Finish it instead of paying for a second link.
		log.Printf("🔁 reconcile: lead %s has a pending CRM write for order %s, resuming", lead.ID, existing.OrderNumber)
		if err := uc.writeBack(ctx, lead.ID, existing, false); err != nil {
			return "", err
		}
		existing.CRMPending = false
		uc.persist(lead.ID, existing)
		return OutcomeResumed, nil
	}

	outcome := OutcomeIssued
	if exists {
		outcome = OutcomeReissued
		log.Printf("💱 reconcile: lead %s amount changed %d -> %d kopeks, re-issuing", lead.ID, existing.Amount, amount)
	}

	orderNumber := entity.NewOrderNumber(lead.ID)
	description := lead.Name
	if description == "" {
		description = "Оплата заказа"
	}

	out, err := uc.Gateway.RegisterOrder(ctx, amount, orderNumber, description)
	if err != nil {
		return "", NewTechnicalError(CodeExternalCall, fmt.Sprintf("reconcile: register order for lead %s", lead.ID), err)
	}
	log.Printf("💳 reconcile: link minted for lead %s: %s (orderId %s)", lead.ID, out.FormURL, out.OrderID)

	// Persist before the CRM write: if the write fails, the retried pass
	// finds this provisional intent and resumes instead of re-minting.
	intent := entity.NewPaymentIntent(orderNumber, amount, out.FormURL, out.OrderID)
	uc.persist(lead.ID, intent)

	if err := uc.writeBack(ctx, lead.ID, intent, outcome == OutcomeReissued); err != nil {
		return "", err
	}

	intent.CRMPending = false
	uc.persist(lead.ID, intent)

	log.Printf("✅ reconcile: lead %s %s (order %s, %d kopeks)", lead.ID, outcome, orderNumber, amount)
	return outcome, nil
}

// writeBack puts the link into the lead's custom field and leaves an audit
// note.
func (uc *ReconcileLeadUseCase) writeBack(ctx context.Context, leadID string, intent entity.PaymentIntent, reissued bool) error {
	fieldValue := fmt.Sprintf("%s (Order ID: %s)", intent.FormURL, intent.OrderID)
	if err := uc.CRM.UpdateLeadField(ctx, leadID, uc.CustomFieldID, fieldValue); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("reconcile: update lead %s field", leadID), err)
	}

	note := fmt.Sprintf("Создана ссылка на оплату: %s (Order ID: %s)", intent.FormURL, intent.OrderID)
	if reissued {
		note = fmt.Sprintf("Создана новая ссылка на оплату (сумма изменена): %s (Order ID: %s)", intent.FormURL, intent.OrderID)
	}
	if err := uc.CRM.AddNote(ctx, leadID, note); err != nil {
		return NewTechnicalError(CodeExternalCall, fmt.Sprintf("reconcile: add note to lead %s", leadID), err)
	}
	return nil
}

// persist logs-and-continues on write failure: in-memory state is correct,
// the snapshot just lags until the next successful save.
func (uc *ReconcileLeadUseCase) persist(leadID string, intent entity.PaymentIntent) {
	if err := uc.Store.Put(leadID, intent); err != nil {
		log.Printf("⚠️ reconcile: failed to persist intent for lead %s: %v", leadID, err)
	}
}

func (uc *ReconcileLeadUseCase) statusAllowed(statusID int) bool {
	for _, id := range uc.AllowedStatusIDs {
		if id == statusID {
			return true
		}
	}
	return false
}
