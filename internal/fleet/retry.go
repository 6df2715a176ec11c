package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides which failures are retried and how long to wait between
// attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialInterval is the wait after the first failure.
	InitialInterval time.Duration
	// Multiplier grows the wait after every further failure.
	Multiplier float64
	// MaxInterval caps a single wait.
	MaxInterval time.Duration
	// Retryable classifies an attempt's error. Errors it rejects end the run at once.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries transient transport failures three times in total,
// waiting 500ms and then doubling, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
		Retryable:       IsTransient,
	}
}

// backOff builds the deterministic exponential schedule of the policy.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts are
// exhausted, or ctx is done. The last error is returned unchanged. notify, if not
// nil, is called before every wait.
func Do[T any](ctx context.Context, p RetryPolicy, op func(attempt int) (T, error), notify func(err error, wait time.Duration)) (T, int, error) {
	attempts := 0
	operation := func() (T, error) {
		attempts++
		res, err := op(attempts)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, backoff.Permanent(ctx.Err())
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	maxTries := p.MaxAttempts
	if maxTries < 1 {
		maxTries = 1
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(maxTries)),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}

	res, err := backoff.Retry(ctx, operation, opts...)
	// The final attempt's error comes back still wrapped when it was permanent.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, attempts, err
}
