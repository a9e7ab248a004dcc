package summarizer

import (
	"context"
	"errors"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/logger"
)

// Retrier repeats provider calls that hit the rate limit.
type Retrier struct {
	policy config.RetryPolicy
	log    *logger.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewRetrier creates a retrier from a rate limit policy.
func NewRetrier(policy config.RetryPolicy, log *logger.Logger) *Retrier {
	if log == nil {
		log = logger.Discard()
	}

	return &Retrier{policy: policy, log: log, sleep: sleepContext}
}

// Do calls fn until it succeeds, fails with something other than a rate
// limit, or runs out of attempts. It returns the number of attempts made.
func (r *Retrier) Do(ctx context.Context, fn func() (*Response, error)) (*Response, int, error) {
	attempts := max(r.policy.MaxAttempts, 1)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, attempt, nil
		}

		lastErr = err

		if !errors.Is(err, ErrRateLimited) || attempt == attempts {
			return nil, attempt, err
		}

		delay := r.policy.Backoff(attempt - 1)
		r.log.Warn("⏳ Rate limit hit, backing off", "delay", delay, "attempt", attempt+1, "max_attempts", attempts)

		if err := r.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}

	return nil, attempts, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
