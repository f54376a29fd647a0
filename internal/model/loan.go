package model

import "github.com/shopspring/decimal"

// LoanListing is a single loan from the marketplace listing feed. It is a
// read-only snapshot for the current scan cycle and is never cached.
type LoanListing struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	Grade                 string          `json:"grade"`
	NoteValue             decimal.Decimal `json:"note_value"`
	AlreadyInvestedAmount decimal.Decimal `json:"already_invested_amount"`
}

// LoanListings is the marketplace listing feed payload.
type LoanListings struct {
	Items []LoanListing `json:"items"`
}

// OrderRequest is the payload for both phases of a purchase. Quantity is
// always 1: the agent buys a single note per eligible loan per cycle.
type OrderRequest struct {
	LoanID   int64 `json:"loan_id"`
	Quantity int   `json:"quantity"`
}

// NewOrderRequest builds the single-note order for a loan.
func NewOrderRequest(loanID int64) OrderRequest {
	return OrderRequest{LoanID: loanID, Quantity: 1}
}
