// Package pacing provides the delay primitives tiles await before each growth attempt.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer resolves once per Await call, or earlier with ctx's error when ctx is done.
type Pacer interface {
	Await(ctx context.Context) error
}

// Func adapts a plain function to Pacer.
type Func func(ctx context.Context) error

// Await calls f.
func (f Func) Await(ctx context.Context) error {
	return f(ctx)
}

// None resolves immediately unless ctx is already done.
var None Pacer = Func(func(ctx context.Context) error {
	return ctx.Err()
})

// Fixed delays every attempt by d, independently of any other attempt.
func Fixed(d time.Duration) Pacer {
	if d <= 0 {
		return None
	}
	return Func(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	})
}

// Limited shares one token bucket between every attempt of a run, so the whole tree
// advances at most once per interval after an initial burst.
func Limited(interval time.Duration, burst int) Pacer {
	if burst < 1 {
		burst = 1
	}
	return limiterPacer{rate.NewLimiter(rate.Every(interval), burst)}
}

type limiterPacer struct{ *rate.Limiter }

// Await blocks until the shared limiter grants a token.
func (l limiterPacer) Await(ctx context.Context) error {
	return l.Wait(ctx)
}
