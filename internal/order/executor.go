// Package order drives the two-phase purchase protocol: quote the order,
// then confirm it with the CSRF token the quote response rotated in.
package order

import (
	"context"
	"fmt"
	"log"

	"github.com/mbennett2212/harmoney-autobuy/internal/model"
)

// Marketplace is the slice of the client the executor needs.
type Marketplace interface {
	OrderSummary(ctx context.Context, req model.OrderRequest) error
	PlaceOrderBatch(ctx context.Context, req model.OrderRequest) error
}

// PlacementError indicates a purchase that failed at one of the two phases.
// The phases are not atomic: a confirm failure after a successful quote is
// reported as-is, with no rollback.
type PlacementError struct {
	Phase  string // "quote" or "confirm"
	LoanID int64
	Err    error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("loan %d: %s phase: %v", e.LoanID, e.Phase, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

// Executor places single-note orders through the marketplace client.
type Executor struct {
	market Marketplace
}

// NewExecutor creates an executor over the given marketplace.
func NewExecutor(m Marketplace) *Executor {
	return &Executor{market: m}
}

// Buy purchases one note of the given loan. A failure at either phase
// aborts only this loan; there is no retry within the cycle, the next
// scan re-evaluates the loan if it is still listed.
func (e *Executor) Buy(ctx context.Context, loan model.LoanListing) error {
	req := model.NewOrderRequest(loan.ID)

	if err := e.market.OrderSummary(ctx, req); err != nil {
		return &PlacementError{Phase: "quote", LoanID: loan.ID, Err: err}
	}
	// The quote response rotated the CSRF token into the shared session;
	// the confirm call picks it up from there.
	if err := e.market.PlaceOrderBatch(ctx, req); err != nil {
		return &PlacementError{Phase: "confirm", LoanID: loan.ID, Err: err}
	}

	log.Printf("[INFO] purchased one note of loan %d (%s, grade %s)", loan.ID, loan.Name, loan.Grade)
	return nil
}
