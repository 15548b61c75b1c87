package praxis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	callPending int32 = iota
	callDelivered
	callAbandoned
)

// callWithTimeout bounds fn to d. fn runs detached with a derived context;
// cancelling it is best-effort. Each call owns its channel and state, so a
// completion that arrives after the deadline is discarded and can never be
// observed by any other call. onLate, if set, receives such discarded
// completions, so a late value that owns resources can be released.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error), onLate func(value T, err error)) (T, error) {
	var zero T
	if d <= 0 {
		d = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	var state atomic.Int32

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("engine panic: %v", r)}
			}
			if state.CompareAndSwap(callPending, callDelivered) {
				done <- out
				return
			}
			if onLate != nil {
				onLate(out.value, out.err)
			}
		}()
		out.value, out.err = fn(callCtx)
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-callCtx.Done():
		if !state.CompareAndSwap(callPending, callAbandoned) {
			// The call finished first and is delivering.
			out := <-done
			return out.value, out.err
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, callCtx.Err()
	}
}
