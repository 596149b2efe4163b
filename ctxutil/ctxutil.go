// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"time"
)

// Sleep waits for the duration or till the context is canceled, whichever
// happens first. Returns the context's cancellation cause if it was canceled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Retry calls f every interval till it succeeds or the context is canceled.
// Returns the last error from f when the context is canceled first.
func Retry(ctx context.Context, interval time.Duration, f func() error) error {
	for {
		err := f()
		if err == nil {
			return nil
		}
		if Sleep(ctx, interval) != nil {
			return err
		}
	}
}

// RetryTimeout is like Retry, but gives up after the timeout.
func RetryTimeout(ctx context.Context, interval, timeout time.Duration, f func() error) error {
	tctx, tcancel := context.WithTimeout(ctx, timeout)
	defer tcancel()
	return Retry(tctx, interval, f)
}
