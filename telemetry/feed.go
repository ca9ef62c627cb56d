package telemetry

import (
	"context"
	"time"
)

// Feed calls OnTick every Interval until its context ends. The callback
// decides whether the session is in a state that accepts updates.
type Feed struct {
	Interval time.Duration
	OnTick   func(ctx context.Context)
}

// Run blocks until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.OnTick(ctx)
		}
	}
}
