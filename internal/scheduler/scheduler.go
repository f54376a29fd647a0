// Package scheduler runs the agent's top-level cycle: log in, check funds,
// scan and buy, then sleep until a wake time computed from the cycle's
// outcome and the market-hours window.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbennett2212/harmoney-autobuy/internal/config"
	"github.com/mbennett2212/harmoney-autobuy/internal/model"
	"github.com/mbennett2212/harmoney-autobuy/internal/notifier"
	"github.com/mbennett2212/harmoney-autobuy/internal/policy"
	"github.com/mbennett2212/harmoney-autobuy/internal/recorder"
)

// Decision is the outcome of a cycle, each mapped to a sleep policy.
type Decision int

const (
	// ContinuePolling sleeps the short poll interval.
	ContinuePolling Decision = iota
	// RetryAfterAuthFailure backs off before attempting login again.
	RetryAfterAuthFailure
	// WaitForFunds sleeps until the next market open regardless of the
	// current time of day.
	WaitForFunds
)

func (d Decision) String() string {
	switch d {
	case RetryAfterAuthFailure:
		return "retry after auth failure"
	case WaitForFunds:
		return "wait for funds"
	default:
		return "continue polling"
	}
}

// Authenticator establishes an authenticated session for the cycle.
type Authenticator interface {
	Login(ctx context.Context) error
}

// Marketplace is the slice of the client the scheduler reads from.
type Marketplace interface {
	Funds(ctx context.Context) (decimal.Decimal, error)
	Loans(ctx context.Context) ([]model.LoanListing, error)
}

// Buyer places a purchase for one eligible loan.
type Buyer interface {
	Buy(ctx context.Context, loan model.LoanListing) error
}

// Deps are the scheduler's collaborators.
type Deps struct {
	Auth     Authenticator
	Market   Marketplace
	Buyer    Buyer
	Policy   *policy.Policy
	Recorder recorder.Recorder
	Notifier notifier.Notifier
}

// Scheduler is the agent's state machine. A single actor owns it; all calls
// run strictly in sequence and the only suspension point is the timed wait.
type Scheduler struct {
	deps Deps

	loc               *time.Location
	openHour          int
	closeHour         int
	poll              time.Duration
	authRetry         time.Duration
	minBalance        decimal.Decimal
	exitAfterPurchase bool

	// now is the wall clock; tests substitute virtual time.
	now func() time.Time
}

// New builds a scheduler from configuration and collaborators.
func New(cfg *config.Config, loc *time.Location, deps Deps) *Scheduler {
	return &Scheduler{
		deps:              deps,
		loc:               loc,
		openHour:          cfg.Schedule.MarketOpenHour,
		closeHour:         cfg.Schedule.MarketCloseHour,
		poll:              time.Duration(cfg.Schedule.PollMinutes) * time.Minute,
		authRetry:         time.Duration(cfg.Schedule.AuthRetryMinutes) * time.Minute,
		minBalance:        decimal.NewFromFloat(cfg.Policy.MinimumBalance),
		exitAfterPurchase: cfg.Schedule.ExitAfterPurchase,
		now:               time.Now,
	}
}

// Run executes cycles until the context is cancelled, or until the first
// successful purchase cycle when exit-after-purchase mode is on.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		decision, done := s.runCycle(ctx)
		if done {
			log.Println("[INFO] purchase cycle complete, exiting as configured")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wake := s.NextWake(decision, s.now())
		log.Printf("[INFO] sleeping until %s (%s)", wake.Format("2006-01-02 15:04 MST"), decision)
		if err := s.sleepUntil(ctx, wake); err != nil {
			return err
		}
	}
}

// runCycle performs login, funds check, and scan-and-buy. It returns the
// sleep decision and whether the process should stop. Failures never
// propagate: they become a decision and log entries.
func (s *Scheduler) runCycle(ctx context.Context) (Decision, bool) {
	if err := s.deps.Auth.Login(ctx); err != nil {
		log.Printf("[ERROR] login failed: %v", err)
		s.recordCycle(&recorder.Cycle{Outcome: "AUTH_FAILURE"})
		return RetryAfterAuthFailure, false
	}

	balance, err := s.deps.Market.Funds(ctx)
	if err != nil {
		// Unknown balance is treated as insufficient funds.
		log.Printf("[WARN] fetch balance failed: %v", err)
		balance = decimal.Zero
	}
	if balance.LessThan(s.minBalance) {
		log.Printf("[INFO] balance %s below minimum %s, waiting for funds", balance, s.minBalance)
		s.recordCycle(&recorder.Cycle{Outcome: "WAIT_FOR_FUNDS", Balance: balanceF(balance)})
		return WaitForFunds, false
	}

	loans, err := s.deps.Market.Loans(ctx)
	if err != nil {
		log.Printf("[WARN] fetch listings failed: %v", err)
		loans = nil
	}
	log.Printf("[INFO] %d loans listed", len(loans))

	eligible, purchased := 0, 0
	for _, loan := range loans {
		if ctx.Err() != nil {
			break
		}
		if !s.deps.Policy.Eligible(loan) {
			continue
		}
		eligible++
		if err := s.deps.Buyer.Buy(ctx, loan); err != nil {
			log.Printf("[ERROR] buy failed: %v", err)
			continue
		}
		purchased++
		s.recordPurchase(ctx, loan)
	}
	s.recordCycle(&recorder.Cycle{
		Outcome: "SCANNED", Balance: balanceF(balance),
		Listed: len(loans), Eligible: eligible, Purchased: purchased,
	})

	if s.exitAfterPurchase && purchased > 0 {
		return ContinuePolling, true
	}
	return ContinuePolling, false
}

// NextWake computes the wake time for a decision. Bounded durations apply
// only inside market hours; outside them (boundary included), and always
// for WaitForFunds, the wake collapses to the next market open.
func (s *Scheduler) NextWake(d Decision, now time.Time) time.Time {
	now = now.In(s.loc)
	if d == WaitForFunds {
		return s.nextOpen(now)
	}
	if !s.withinMarketHours(now) {
		return s.nextOpen(now)
	}
	if d == RetryAfterAuthFailure {
		return now.Add(s.authRetry)
	}
	return now.Add(s.poll)
}

// withinMarketHours reports whether t falls in [open, close).
func (s *Scheduler) withinMarketHours(t time.Time) bool {
	h := t.Hour()
	return h >= s.openHour && h < s.closeHour
}

// nextOpen returns today's market open if t is before it, else tomorrow's.
func (s *Scheduler) nextOpen(t time.Time) time.Time {
	open := time.Date(t.Year(), t.Month(), t.Day(), s.openHour, 0, 0, 0, s.loc)
	if !t.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// sleepUntil blocks until wake or context cancellation, whichever is first.
func (s *Scheduler) sleepUntil(ctx context.Context, wake time.Time) error {
	d := wake.Sub(s.now())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) recordPurchase(ctx context.Context, loan model.LoanListing) {
	nv, _ := loan.NoteValue.Float64()
	if err := s.deps.Recorder.RecordPurchase(&recorder.Purchase{
		Timestamp: s.now(),
		LoanID:    loan.ID,
		LoanName:  loan.Name,
		Grade:     loan.Grade,
		Amount:    nv,
	}); err != nil {
		log.Printf("[ERROR] record purchase: %v", err)
	}
	msg := fmt.Sprintf("💸 Bought one note of <b>%s</b> (grade %s, $%s)", loan.Name, loan.Grade, loan.NoteValue)
	if err := s.deps.Notifier.SendWithRetry(ctx, msg, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

func (s *Scheduler) recordCycle(c *recorder.Cycle) {
	if err := s.deps.Recorder.RecordCycle(c); err != nil {
		log.Printf("[ERROR] record cycle: %v", err)
	}
}

func balanceF(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
