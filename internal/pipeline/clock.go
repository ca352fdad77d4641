package pipeline

import (
	"context"
	"time"
)

// Clock abstracts waiting so poll loops can be driven instantly in tests.
type Clock interface {
	// Sleep blocks for d or until the context is cancelled, returning the
	// context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns a Clock backed by real timers.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
