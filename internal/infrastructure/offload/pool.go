// Package offload runs blocking extraction work on a bounded set of workers.
package offload

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

const defaultWorkers = 8

type Pool struct {
	sem *semaphore.Weighted
}

func New(workers int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

type result struct {
	text string
	err  error
}

// Run executes fn on its own goroutine once a worker slot is free. The caller
// stops waiting when ctx is done; the slot is released only when fn returns.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}

	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		done <- safeCall(ctx, fn)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func safeCall(ctx context.Context, fn func(context.Context) (string, error)) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{err: fmt.Errorf("offload: worker panic: %v", r)}
		}
	}()
	text, err := fn(ctx)
	return result{text: text, err: err}
}
