package deadline

import (
	"context"
	"fmt"
	"time"
)

// ErrTimeout wraps context.DeadlineExceeded for collaborator calls
var ErrTimeout = fmt.Errorf("collaborator call timed out: %w", context.DeadlineExceeded)

// Call runs fn with a derived timeout and returns as soon as the deadline
// passes, even if fn ignores its context. A zero timeout only inherits ctx.
func Call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{val: zero, err: fmt.Errorf("collaborator panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
