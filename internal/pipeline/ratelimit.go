package pipeline

import (
	"context"
	"time"
)

// Wait returns how long the controller should pause before starting the next
// batch, given how much wall-clock time the current batch consumed. A batch
// that already ran longer than the window gets no pause and no compensation:
// the limiter never tries to catch up with a burst.
func Wait(elapsed, window time.Duration) time.Duration {
	if remaining := window - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Sleep pauses for d or until ctx is cancelled, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
