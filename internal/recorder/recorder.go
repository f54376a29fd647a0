package recorder

import "time"

// Purchase is one completed note purchase.
type Purchase struct {
	Timestamp time.Time
	LoanID    int64
	LoanName  string
	Grade     string
	Amount    float64
}

// Cycle records the outcome of one scheduler cycle.
type Cycle struct {
	Outcome   string // "AUTH_FAILURE", "WAIT_FOR_FUNDS", "SCANNED"
	Balance   float64
	Listed    int
	Eligible  int
	Purchased int
}

// Recorder persists the purchase journal for later analysis.
type Recorder interface {
	RecordPurchase(p *Purchase) error
	RecordCycle(c *Cycle) error
	PurchasesSince(t time.Time) ([]Purchase, error)
	Close() error
}
