package entity

// Lead is the snapshot of a CRM deal as read from amoCRM. It is an input
// to one reconciliation pass, never persisted; staleness is corrected by
// the next webhook or sweep.
type Lead struct {
	ID         string
	Name       string
	Price      int64 // rubles, as amoCRM stores the deal budget
	PipelineID int
	StatusID   int
	Tags       []string
}

// AmountKopeks converts the deal budget to the minor units the gateway
// charges in.
func (l Lead) AmountKopeks() int64 {
	return l.Price * 100
}

func (l Lead) HasTag(name string) bool {
	for _, t := range l.Tags {
		if t == name {
			return true
		}
	}
	return false
}
