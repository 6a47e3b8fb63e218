package sync

import (
	"context"
	"time"
)

// Delayer paces the batch between consecutive users. The delay is applied
// unconditionally, regardless of the previous cycle's outcome, to keep the
// request rate against the membership API bounded.
type Delayer interface {
	// Delay blocks for the pacing interval or until the context is canceled
	Delay(ctx context.Context) error
}

type fixedDelayer struct {
	interval time.Duration
}

// NewFixedDelayer returns a Delayer that waits a fixed interval
func NewFixedDelayer(interval time.Duration) Delayer {
	return &fixedDelayer{interval: interval}
}

func (d *fixedDelayer) Delay(ctx context.Context) error {
	if d.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// noDelayer skips pacing entirely (tests)
type noDelayer struct{}

// NewNoDelayer returns a Delayer that never waits
func NewNoDelayer() Delayer {
	return noDelayer{}
}

func (noDelayer) Delay(ctx context.Context) error {
	return ctx.Err()
}
