package nats

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// dispatcher runs message handlers on their own goroutines, at most limit at
// a time. Go blocks the subscription callback while every slot is busy, so
// pending messages stay in the client buffer.
type dispatcher struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func newDispatcher(limit int) *dispatcher {
	if limit <= 0 {
		limit = 1
	}
	return &dispatcher{sem: semaphore.NewWeighted(int64(limit))}
}

// Go reports false when ctx ends before a slot frees up; fn is not run.
func (d *dispatcher) Go(ctx context.Context, fn func()) bool {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		fn()
	}()
	return true
}

// Wait blocks until every started handler has returned.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}
