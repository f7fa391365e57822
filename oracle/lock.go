package oracle

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Lock serializes access to the pair registry between pair discovery and
// the price cycle.
type Lock struct {
	sem *semaphore.Weighted
}

func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// Do runs fn while holding the lock. It returns ctx.Err() if the context is
// cancelled before the lock is acquired.
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn(ctx)
}
