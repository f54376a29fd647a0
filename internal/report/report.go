// Package report publishes a daily summary of the agent's purchases.
package report

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mbennett2212/harmoney-autobuy/internal/notifier"
	"github.com/mbennett2212/harmoney-autobuy/internal/recorder"
)

// Reporter summarizes the last day of journal entries on a fixed schedule.
type Reporter struct {
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Loc      *time.Location
}

// NewReporter creates a reporter over the journal and notifier.
func NewReporter(rec recorder.Recorder, n notifier.Notifier, loc *time.Location) *Reporter {
	return &Reporter{Recorder: rec, Notifier: n, Loc: loc}
}

// Register adds the daily summary job to the cron scheduler.
func (r *Reporter) Register(c *cron.Cron, spec string) error {
	if _, err := c.AddFunc(spec, r.run); err != nil {
		return fmt.Errorf("register daily report: %w", err)
	}
	return nil
}

func (r *Reporter) run() {
	since := time.Now().In(r.Loc).Add(-24 * time.Hour)
	purchases, err := r.Recorder.PurchasesSince(since)
	if err != nil {
		log.Printf("[ERROR] daily report: %v", err)
		return
	}

	var total float64
	for _, p := range purchases {
		total += p.Amount
	}
	log.Printf("[INFO] daily report: %d notes purchased, $%.2f total", len(purchases), total)

	if len(purchases) == 0 {
		return
	}
	msg := fmt.Sprintf("📊 <b>Daily summary</b>\n\n%d notes purchased, $%.2f total", len(purchases), total)
	for _, p := range purchases {
		msg += fmt.Sprintf("\n• %s (grade %s, $%.0f)", p.LoanName, p.Grade, p.Amount)
	}
	if err := r.Notifier.Send(msg); err != nil {
		log.Printf("[ERROR] send daily report: %v", err)
	}
}
