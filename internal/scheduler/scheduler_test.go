package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbennett2212/harmoney-autobuy/internal/config"
	"github.com/mbennett2212/harmoney-autobuy/internal/model"
	"github.com/mbennett2212/harmoney-autobuy/internal/notifier"
	"github.com/mbennett2212/harmoney-autobuy/internal/policy"
	"github.com/mbennett2212/harmoney-autobuy/internal/recorder"
)

type fakeAuth struct {
	err   error
	calls atomic.Int32
}

func (f *fakeAuth) Login(_ context.Context) error {
	f.calls.Add(1)
	return f.err
}

type fakeMarket struct {
	balance    decimal.Decimal
	balanceErr error
	loans      []model.LoanListing
	loansErr   error
	fundsCalls int
	loansCalls int
}

func (f *fakeMarket) Funds(_ context.Context) (decimal.Decimal, error) {
	f.fundsCalls++
	return f.balance, f.balanceErr
}

func (f *fakeMarket) Loans(_ context.Context) ([]model.LoanListing, error) {
	f.loansCalls++
	return f.loans, f.loansErr
}

type fakeBuyer struct {
	err    error
	bought []int64
}

func (f *fakeBuyer) Buy(_ context.Context, loan model.LoanListing) error {
	if f.err != nil {
		return f.err
	}
	f.bought = append(f.bought, loan.ID)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Policy.Grades = []string{"A1", "A2", "A3", "A4", "A5", "B1", "B2", "B3"}
	cfg.Policy.NoteValue = 25
	cfg.Policy.MinimumBalance = 25
	cfg.Schedule.MarketOpenHour = 8
	cfg.Schedule.MarketCloseHour = 21
	cfg.Schedule.PollMinutes = 5
	cfg.Schedule.AuthRetryMinutes = 60
	return cfg
}

func newTestScheduler(cfg *config.Config, auth *fakeAuth, market *fakeMarket, buyer *fakeBuyer) *Scheduler {
	return New(cfg, time.UTC, Deps{
		Auth:     auth,
		Market:   market,
		Buyer:    buyer,
		Policy:   policy.New(cfg.Policy.Grades, cfg.Policy.NoteValue),
		Recorder: recorder.NewNoopRecorder(),
		Notifier: notifier.NewNoopNotifier(),
	})
}

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 10, hour, min, 0, 0, time.UTC)
}

func TestNextWake_MarketHoursGating(t *testing.T) {
	s := newTestScheduler(testConfig(), &fakeAuth{}, &fakeMarket{}, &fakeBuyer{})
	tests := []struct {
		name     string
		decision Decision
		now      time.Time
		want     time.Time
	}{
		{"poll inside hours", ContinuePolling, at(10, 0), at(10, 5)},
		{"auth retry inside hours", RetryAfterAuthFailure, at(10, 0), at(11, 0)},
		{"poll just before open", ContinuePolling, at(7, 59), at(8, 0)},
		{"poll after close", ContinuePolling, at(21, 30), at(8, 0).AddDate(0, 0, 1)},
		{"poll exactly at close", ContinuePolling, at(21, 0), at(8, 0).AddDate(0, 0, 1)},
		{"poll exactly at open", ContinuePolling, at(8, 0), at(8, 5)},
		{"auth retry overnight", RetryAfterAuthFailure, at(23, 15), at(8, 0).AddDate(0, 0, 1)},
		{"wait for funds before open", WaitForFunds, at(7, 0), at(8, 0)},
		{"wait for funds inside hours", WaitForFunds, at(10, 0), at(8, 0).AddDate(0, 0, 1)},
		{"wait for funds after close", WaitForFunds, at(22, 0), at(8, 0).AddDate(0, 0, 1)},
	}
	for _, tt := range tests {
		if got := s.NextWake(tt.decision, tt.now); !got.Equal(tt.want) {
			t.Errorf("%s: expected wake %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestRunCycle_AuthFailureBacksOff(t *testing.T) {
	auth := &fakeAuth{err: errors.New("unexpected status 401")}
	market := &fakeMarket{}
	s := newTestScheduler(testConfig(), auth, market, &fakeBuyer{})

	decision, done := s.runCycle(context.Background())
	if decision != RetryAfterAuthFailure || done {
		t.Fatalf("expected auth-failure decision, got %v (done=%v)", decision, done)
	}
	if market.fundsCalls != 0 {
		t.Error("no marketplace call may run after a failed login")
	}
}

func TestRunCycle_InsufficientFundsSkipsScan(t *testing.T) {
	market := &fakeMarket{balance: decimal.NewFromInt(24)}
	buyer := &fakeBuyer{}
	s := newTestScheduler(testConfig(), &fakeAuth{}, market, buyer)

	decision, _ := s.runCycle(context.Background())
	if decision != WaitForFunds {
		t.Fatalf("expected WaitForFunds, got %v", decision)
	}
	if market.loansCalls != 0 {
		t.Error("listings must not be fetched when funds are insufficient")
	}
	if len(buyer.bought) != 0 {
		t.Error("no purchase may be issued when funds are insufficient")
	}
}

func TestRunCycle_BalanceErrorTreatedAsInsufficient(t *testing.T) {
	market := &fakeMarket{balanceErr: errors.New("status 500")}
	s := newTestScheduler(testConfig(), &fakeAuth{}, market, &fakeBuyer{})

	decision, _ := s.runCycle(context.Background())
	if decision != WaitForFunds {
		t.Fatalf("expected WaitForFunds on unknown balance, got %v", decision)
	}
}

func TestRunCycle_BuysOnlyEligibleListings(t *testing.T) {
	market := &fakeMarket{
		balance: decimal.NewFromInt(100),
		loans: []model.LoanListing{
			{ID: 1, Name: "Good", Grade: "A3", NoteValue: decimal.NewFromInt(25)},
			{ID: 2, Name: "Risky", Grade: "C2", NoteValue: decimal.NewFromInt(25)},
		},
	}
	buyer := &fakeBuyer{}
	s := newTestScheduler(testConfig(), &fakeAuth{}, market, buyer)

	decision, done := s.runCycle(context.Background())
	if decision != ContinuePolling || done {
		t.Fatalf("expected ContinuePolling, got %v (done=%v)", decision, done)
	}
	if len(buyer.bought) != 1 || buyer.bought[0] != 1 {
		t.Fatalf("expected exactly one buy for loan 1, got %v", buyer.bought)
	}
}

func TestRunCycle_BuyFailureContinuesWithNextLoan(t *testing.T) {
	market := &fakeMarket{
		balance: decimal.NewFromInt(100),
		loans: []model.LoanListing{
			{ID: 1, Grade: "A1", NoteValue: decimal.NewFromInt(25)},
			{ID: 2, Grade: "B2", NoteValue: decimal.NewFromInt(25)},
		},
	}
	buyer := &fakeBuyer{err: errors.New("confirm phase: status 403")}
	s := newTestScheduler(testConfig(), &fakeAuth{}, market, buyer)

	decision, _ := s.runCycle(context.Background())
	if decision != ContinuePolling {
		t.Fatalf("expected ContinuePolling despite buy failures, got %v", decision)
	}
}

func TestRunCycle_ExitAfterPurchase(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.ExitAfterPurchase = true
	market := &fakeMarket{
		balance: decimal.NewFromInt(100),
		loans:   []model.LoanListing{{ID: 1, Grade: "A1", NoteValue: decimal.NewFromInt(25)}},
	}
	s := newTestScheduler(cfg, &fakeAuth{}, market, &fakeBuyer{})

	if _, done := s.runCycle(context.Background()); !done {
		t.Error("expected cycle to signal completion after a purchase")
	}

	// No purchase, no exit.
	market.loans = nil
	if _, done := s.runCycle(context.Background()); done {
		t.Error("cycle must not signal completion without a purchase")
	}
}

func TestRun_RetriesLoginAfterWake(t *testing.T) {
	cfg := testConfig()
	auth := &fakeAuth{err: errors.New("unexpected status 401")}
	s := newTestScheduler(cfg, auth, &fakeMarket{}, &fakeBuyer{})

	// Virtual clock: every read jumps a full day, so any computed wake time
	// is already in the past and sleepUntil returns immediately.
	now := at(10, 0)
	s.now = func() time.Time {
		now = now.Add(24 * time.Hour)
		return now
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for auth.calls.Load() < 3 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if got := auth.calls.Load(); got < 3 {
		t.Errorf("expected repeated login attempts, got %d", got)
	}
}

func TestSleepUntil_Cancellable(t *testing.T) {
	s := newTestScheduler(testConfig(), &fakeAuth{}, &fakeMarket{}, &fakeBuyer{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.sleepUntil(ctx, time.Now().Add(time.Hour))
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sleep did not unblock on cancellation")
	}
}
