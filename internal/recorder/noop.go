package recorder

import "time"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPurchase(_ *Purchase) error                  { return nil }
func (n *NoopRecorder) RecordCycle(_ *Cycle) error                        { return nil }
func (n *NoopRecorder) PurchasesSince(_ time.Time) ([]Purchase, error)    { return nil, nil }
func (n *NoopRecorder) Close() error                                      { return nil }
