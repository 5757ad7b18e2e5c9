package generator

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a generator so calls share one token bucket. A request
// whose context ends while waiting for a token fails as unavailable.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with the given burst.
func NewRateLimited(next Generator, perMinute float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), burst),
	}
}

func (r *RateLimited) Name() string {
	return r.next.Name()
}

func (r *RateLimited) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return &Result{ServiceName: r.Name(), Error: err.Error()}, fmt.Errorf("%w: rate limit: %v", ErrUnavailable, err)
	}
	return r.next.Generate(ctx, req)
}

func (r *RateLimited) IsAvailable(ctx context.Context) error {
	return r.next.IsAvailable(ctx)
}
