package vectorbackend

import (
	"context"
	"time"
)

// TimeoutBackend wraps a Backend so every call is bounded by timeout
// (§5 "implicit per-call timeout, hard limit 2 seconds recommended").
// Callers translate the resulting context.DeadlineExceeded (or any other
// error) into the degrade-to-keyword-only behavior of §4.5.9.
type TimeoutBackend struct {
	inner   Backend
	timeout time.Duration
}

// WithTimeout decorates inner with a per-call deadline.
func WithTimeout(inner Backend, timeout time.Duration) *TimeoutBackend {
	return &TimeoutBackend{inner: inner, timeout: timeout}
}

func (b *TimeoutBackend) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *TimeoutBackend) EnsureCollection(ctx context.Context, name string) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()
	return b.inner.EnsureCollection(ctx, name)
}

func (b *TimeoutBackend) Upsert(ctx context.Context, name string, points []Point) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()
	return b.inner.Upsert(ctx, name, points)
}

func (b *TimeoutBackend) Query(ctx context.Context, name, text string, k int, where Filter) (QueryResult, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()
	return b.inner.Query(ctx, name, text, k, where)
}

func (b *TimeoutBackend) Stats(ctx context.Context, name string) (Stats, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()
	return b.inner.Stats(ctx, name)
}

func (b *TimeoutBackend) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()
	return b.inner.DeleteCollection(ctx, name)
}
