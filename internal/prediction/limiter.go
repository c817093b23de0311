package prediction

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/vietddude/fraudlens/internal/metrics"
)

// Limiter caps the number of scoring calls in flight at once. One Limiter is
// shared by every fetch the process runs, so the ceiling protects the
// scoring service globally rather than per request.
type Limiter struct {
	sem      *semaphore.Weighted
	permits  int
	inFlight atomic.Int64
}

// NewLimiter creates a limiter with the given number of permits (minimum 1).
func NewLimiter(permits int) *Limiter {
	if permits < 1 {
		permits = 1
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(permits)),
		permits: permits,
	}
}

// Do runs fn while holding one permit. The permit is released on every exit
// path, including a panic in fn. The only error is ctx's, when ctx ends
// before a permit frees up; fn is not run in that case.
func (l *Limiter) Do(ctx context.Context, fn func()) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	l.inFlight.Add(1)
	metrics.ScoringInFlight.Inc()
	defer func() {
		l.inFlight.Add(-1)
		metrics.ScoringInFlight.Dec()
	}()

	fn()
	return nil
}

// Permits returns the configured ceiling.
func (l *Limiter) Permits() int {
	return l.permits
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}
