// Package bridge provides a run-to-completion capability: a unit of work
// executes exactly once and its result is available synchronously to the
// caller, whether the caller is a plain synchronous entry point or is itself
// already inside bridge-driven work. Re-entrant dispatch is detected with a
// single context check instead of per-call-site fallbacks.
package bridge

import "context"

type activeKey struct{}

// Active reports whether ctx is already driven by the bridge.
func Active(ctx context.Context) bool {
	return ctx.Value(activeKey{}) != nil
}

type outcome[T any] struct {
	val      T
	err      error
	panicked any
}

// Run executes fn to completion and returns its result. When the calling
// context is not bridge-owned, fn runs directly on the caller. When the caller
// is already inside bridge-driven work, fn is handed to a dedicated worker
// goroutine with its own detached context, the caller blocks until the worker
// finishes, and the worker's result is propagated; a panic on the worker is
// re-raised unchanged on the caller. Either way fn executes exactly once and
// the caller never returns before a result is available.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if !Active(ctx) {
		return fn(context.WithValue(ctx, activeKey{}, struct{}{}))
	}

	ch := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome[T]{panicked: r}
			}
		}()
		// The worker owns its own lifetime: cancelling the caller's
		// context must not abandon work the caller is blocked on.
		detached := context.WithValue(context.WithoutCancel(ctx), activeKey{}, struct{}{})
		val, err := fn(detached)
		ch <- outcome[T]{val: val, err: err}
	}()

	o := <-ch
	if o.panicked != nil {
		panic(o.panicked)
	}
	return o.val, o.err
}
