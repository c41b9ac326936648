package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
)

// CRMClient is the slice of amoCRM the reconciliation engine consumes.
type CRMClient interface {
	GetLead(ctx context.Context, leadID string) (*entity.Lead, error)
	UpdateLeadField(ctx context.Context, leadID string, fieldID int, value string) error
	AddNote(ctx context.Context, leadID, text string) error
	AddTag(ctx context.Context, leadID, name string) error
	ChangeStatus(ctx context.Context, leadID string, statusID int) error
}

// PaymentGateway mints payment links and reports order state.
type PaymentGateway interface {
	RegisterOrder(ctx context.Context, amount int64, orderNumber, description string) (alfabank.RegisterOrderOutput, error)
	GetOrderStatus(ctx context.Context, orderNumber string) (int, error)
}

// IntentStore is the persisted lead→intent mapping. Load never fails (a
// broken snapshot resets to empty). Put and Delete mutate one lead at a
// time and must be atomic against each other, so concurrent writers for
// different leads never lose updates; LockLead serializes the
// check-then-act sequences for one lead across reconcile, callback and
// sweep.
type IntentStore interface {
	Load() map[string]entity.PaymentIntent
	Put(leadID string, intent entity.PaymentIntent) error
	Delete(leadID string) error
	Prune(payments map[string]entity.PaymentIntent, maxAge time.Duration) map[string]entity.PaymentIntent
	LockLead(leadID string) func()
}

// PaymentNotifier delivers the optional ops notice when a payment settles.
type PaymentNotifier interface {
	SendPaymentReceived(leadID, leadName, orderNumber string, amountKopeks int64) error
}
