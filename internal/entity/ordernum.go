package entity

import (
	"fmt"
	"math/rand"
)

// NewOrderNumber derives the gateway-facing correlation token for a lead:
// "{lead_id}_{letter}{100-999}". Human-scannable, unique enough to tell
// re-issues for the same lead apart; not meant to be unpredictable.
func NewOrderNumber(leadID string) string {
	letter := rune('A' + rand.Intn(26))
	return fmt.Sprintf("%s_%c%d", leadID, letter, 100+rand.Intn(900))
}
