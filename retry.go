package praxis

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy re-invokes a fallible operation with exponential backoff:
// BaseDelay, 2×BaseDelay, 4×BaseDelay, ... between at most MaxAttempts tries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// OnRetry observes each scheduled delay before it is slept.
	OnRetry func(attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns 3 attempts with a 1s base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultRetryBaseDelay}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryBaseDelay
	}
	return p
}

// backoff builds a fresh schedule; go-retry backoffs are stateful.
func (p RetryPolicy) backoff() retry.Backoff {
	p = p.withDefaults()
	next := retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewExponential(p.BaseDelay))

	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := next.Next()
		if stop {
			return 0, true
		}
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay)
		}
		return delay, false
	})
}

// retryOperation runs fn under the policy. It stops on success or on a
// non-retryable classified error; once attempts are exhausted it returns a
// terminal UNKNOWN error wrapping the last failure. The returned AIError is
// never retryable.
func retryOperation[T any](ctx context.Context, p RetryPolicy, classifier Classifier, op string, fn func(context.Context) (T, error)) (T, *AIError) {
	var (
		zero   T
		result T
		last   *AIError
	)
	if classifier == nil {
		classifier = DefaultClassifier
	}

	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		last = classifier.Classify(err, op)
		if last.Retryable {
			return retry.RetryableError(last)
		}
		return last
	})

	switch {
	case err == nil:
		return result, nil
	case last == nil:
		// Context ended before the first attempt.
		aiErr := *classifier.Classify(err, op)
		aiErr.Retryable = false
		return zero, &aiErr
	case !last.Retryable:
		return zero, last
	case ctx.Err() != nil:
		return zero, &AIError{
			Code:      last.Code,
			Message:   op + ": retries aborted: " + ctx.Err().Error(),
			Retryable: false,
			Err:       last,
			Timestamp: time.Now().UTC(),
		}
	default:
		return zero, &AIError{
			Code:      CodeUnknown,
			Message:   op + ": max retries exceeded",
			Retryable: false,
			Err:       last,
			Timestamp: time.Now().UTC(),
		}
	}
}
