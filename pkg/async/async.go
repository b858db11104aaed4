// Package async provides background-task primitives: panic-safe goroutines
// with bounded lifetimes, and bounded-concurrency batch execution.
//
// Event fan-out and webhook delivery run through this package so that a
// panicking or stalled side effect can never take a request down with it.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/warden/pkg/observability"
)

// SafeGo runs fn in its own goroutine under a context bounded by timeout.
// Panics are recovered and logged with a stack trace; errors from fn are
// logged. Use this instead of a bare go statement for fire-and-forget work.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, log *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is SafeGo for functions that handle their own errors.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, log *observability.Logger, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, log, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Batch runs fn over every item with at most concurrency goroutines in
// flight. The first error cancels the shared context and is returned after
// all started items finish; callers that want best-effort semantics should
// absorb errors inside fn.
func Batch[T any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) error) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range items {
		item := items[i]
		g.Go(func() error {
			return fn(ctx, item)
		})
	}
	return g.Wait()
}
