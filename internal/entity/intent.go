package entity

import "time"

type IntentStatus string

const (
	IntentPending  IntentStatus = "PENDING"
	IntentPaid     IntentStatus = "PAID"
	IntentDeclined IntentStatus = "DECLINED"
)

// PaymentIntent is the persisted record of one issued payment link.
// At most one intent exists per lead; a re-issue replaces the old record.
//
// The JSON shape matches the payments file that older deployments already
// carry: unknown fields are ignored on read, and the fields added here
// (status, crm_pending) marshal with omitempty so old readers stay happy.
type PaymentIntent struct {
	OrderNumber string       `json:"order_number"`
	Amount      int64        `json:"amount"`     // kopeks
	FormURL     string       `json:"form_url"`   // gateway payment page
	OrderID     string       `json:"order_id"`   // id assigned by the gateway
	CreatedAt   float64      `json:"created_at"` // unix seconds
	Status      IntentStatus `json:"status,omitempty"`
	// CRMPending marks an intent whose link was minted but whose CRM
	// write-back has not completed yet. A retried reconcile resumes the
	// CRM write instead of minting a second link. Absent in the file
	// means synced.
	CRMPending bool `json:"crm_pending,omitempty"`
}

func NewPaymentIntent(orderNumber string, amount int64, formURL, orderID string) PaymentIntent {
	return PaymentIntent{
		OrderNumber: orderNumber,
		Amount:      amount,
		FormURL:     formURL,
		OrderID:     orderID,
		CreatedAt:   float64(time.Now().UnixNano()) / float64(time.Second),
		Status:      IntentPending,
		CRMPending:  true,
	}
}

func (i PaymentIntent) Age(now time.Time) time.Duration {
	created := time.Unix(0, int64(i.CreatedAt*float64(time.Second)))
	return now.Sub(created)
}
