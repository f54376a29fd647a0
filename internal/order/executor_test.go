package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mbennett2212/harmoney-autobuy/internal/model"
)

type fakeMarket struct {
	summaryErr   error
	batchErr     error
	summaryCalls []model.OrderRequest
	batchCalls   []model.OrderRequest
}

func (f *fakeMarket) OrderSummary(_ context.Context, req model.OrderRequest) error {
	f.summaryCalls = append(f.summaryCalls, req)
	return f.summaryErr
}

func (f *fakeMarket) PlaceOrderBatch(_ context.Context, req model.OrderRequest) error {
	f.batchCalls = append(f.batchCalls, req)
	return f.batchErr
}

func testLoan() model.LoanListing {
	return model.LoanListing{ID: 7, Name: "Test Loan", Grade: "A3", NoteValue: decimal.NewFromInt(25)}
}

func TestBuy_TwoPhases(t *testing.T) {
	m := &fakeMarket{}
	e := NewExecutor(m)
	if err := e.Buy(context.Background(), testLoan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.summaryCalls) != 1 || len(m.batchCalls) != 1 {
		t.Fatalf("expected one call per phase, got %d/%d", len(m.summaryCalls), len(m.batchCalls))
	}
	for _, req := range []model.OrderRequest{m.summaryCalls[0], m.batchCalls[0]} {
		if req.LoanID != 7 || req.Quantity != 1 {
			t.Errorf("expected single-note order for loan 7, got %+v", req)
		}
	}
}

func TestBuy_QuoteFailureSkipsConfirm(t *testing.T) {
	m := &fakeMarket{summaryErr: errors.New("status 422")}
	e := NewExecutor(m)
	err := e.Buy(context.Background(), testLoan())
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *PlacementError
	if !errors.As(err, &pe) || pe.Phase != "quote" {
		t.Fatalf("expected quote-phase placement error, got %v", err)
	}
	if len(m.batchCalls) != 0 {
		t.Error("confirm must not run after a failed quote")
	}
}

func TestBuy_ConfirmFailure(t *testing.T) {
	m := &fakeMarket{batchErr: errors.New("status 403")}
	e := NewExecutor(m)
	err := e.Buy(context.Background(), testLoan())
	var pe *PlacementError
	if !errors.As(err, &pe) || pe.Phase != "confirm" {
		t.Fatalf("expected confirm-phase placement error, got %v", err)
	}
	if pe.LoanID != 7 {
		t.Errorf("expected loan 7 in error, got %d", pe.LoanID)
	}
}
