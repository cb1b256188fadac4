package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestPool(size int) *Pool {
	return NewPool(slog.New(slog.NewTextHandler(io.Discard, nil)), size)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := newTestPool(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		assert.True(t, p.Go(func(context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	p.Close()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolRecoversPanics(t *testing.T) {
	p := newTestPool(1)
	assert.True(t, p.Go(func(context.Context) { panic("boom") }))

	done := make(chan struct{})
	assert.True(t, p.Go(func(context.Context) { close(done) }))
	<-done
	p.Close()
}

func TestPoolClose(t *testing.T) {
	p := newTestPool(1)

	cancelled := make(chan struct{})
	assert.True(t, p.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))
	p.Close()
	<-cancelled

	assert.False(t, p.Go(func(context.Context) {}))
}

func TestPoolSubmitDoesNotBlock(t *testing.T) {
	p := newTestPool(1)

	release := make(chan struct{})
	assert.True(t, p.Go(func(context.Context) { <-release }))

	ran := make(chan struct{})
	p.Submit(func(context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("submitted task ran while the pool was full")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-ran
	p.Close()
}
