package entity

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^31337_[A-Z][1-9]\d{2}$`)

	for i := 0; i < 200; i++ {
		on := NewOrderNumber("31337")
		assert.Regexp(t, re, on)
	}
}

func TestNewOrderNumberVariesAcrossIssues(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[NewOrderNumber("7")] = true
	}
	// 26*900 possible suffixes; 50 draws colliding into one value would
	// mean the randomness is broken.
	assert.Greater(t, len(seen), 1)
}

func TestNewPaymentIntentDefaults(t *testing.T) {
	intent := NewPaymentIntent("42_B555", 5000, "https://pay.example/form", "md-1")

	assert.Equal(t, "42_B555", intent.OrderNumber)
	assert.Equal(t, int64(5000), intent.Amount)
	assert.Equal(t, IntentPending, intent.Status)
	assert.True(t, intent.CRMPending, "fresh intent must be marked pending CRM write")
	assert.Less(t, intent.Age(time.Now()), time.Minute)
}

func TestLeadAmountKopeks(t *testing.T) {
	assert.Equal(t, int64(5000), Lead{Price: 50}.AmountKopeks())
	assert.Equal(t, int64(0), Lead{}.AmountKopeks())
}
