package syncqueue

import (
	"context"
	"time"
)

// Clock abstracts time so tests can drive backoff with a virtual clock
// instead of waiting on real timers.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

// NewClock returns a Clock backed by the system time.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
