// Package policy holds the eligibility rules that gate which listed loans
// the agent will attempt to buy.
package policy

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/mbennett2212/harmoney-autobuy/internal/model"
)

// Policy is the configured eligibility constants: the acceptable grade set
// and the single note size the agent buys.
type Policy struct {
	grades    map[string]struct{}
	noteValue decimal.Decimal
}

// New builds a policy from the configured grade list and note value.
func New(grades []string, noteValue float64) *Policy {
	set := make(map[string]struct{}, len(grades))
	for _, g := range grades {
		set[g] = struct{}{}
	}
	return &Policy{grades: set, noteValue: decimal.NewFromFloat(noteValue)}
}

// NoteValue returns the unit size the policy buys.
func (p *Policy) NoteValue() decimal.Decimal { return p.noteValue }

// Eligible reports whether a listing qualifies for purchase. Pure check,
// never errors: a loan already holding a position is skipped silently,
// grade and note-value violations are logged with the offending value.
func (p *Policy) Eligible(loan model.LoanListing) bool {
	if !loan.AlreadyInvestedAmount.IsZero() {
		return false
	}
	if _, ok := p.grades[loan.Grade]; !ok {
		log.Printf("[INFO] loan %d (%s): grade %q not acceptable", loan.ID, loan.Name, loan.Grade)
		return false
	}
	if !loan.NoteValue.Equal(p.noteValue) {
		log.Printf("[INFO] loan %d (%s): note value %s, want %s", loan.ID, loan.Name, loan.NoteValue, p.noteValue)
		return false
	}
	return true
}
