// Package worker provides the bounded pool that runs blocking moderation work off the main thread.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs tasks on a bounded number of goroutines.
type Pool struct {
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// NewPool returns a pool running at most size tasks at once.
func NewPool(log *slog.Logger, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(size)),
	}
}

// Go submits f to the pool. It blocks while the pool is full and returns false if the pool was closed before
// f could be started. f receives a context that is cancelled when the pool closes.
func (p *Pool) Go(f func(ctx context.Context)) bool {
	if p.ctx.Err() != nil {
		return false
	}
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("worker task panicked", "error", r)
			}
		}()
		f(p.ctx)
	}()
	return true
}

// Submit queues f without blocking the caller, which makes it safe to use from the main thread. f is dropped
// if the pool closes before it could be started.
func (p *Pool) Submit(f func(ctx context.Context)) {
	if p.ctx.Err() != nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if !p.Go(f) {
			p.log.Debug("dropped task submitted to closed pool")
		}
	}()
}

// Close cancels the context of running tasks and waits for them to return.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
