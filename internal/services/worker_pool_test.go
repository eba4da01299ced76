package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(4)

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		pool.Submit(func() {
			atomic.AddInt64(&ran, 1)
			wg.Done()
		})
	}
	wg.Wait()
	pool.Shutdown()
	assert.Equal(t, int64(100), atomic.LoadInt64(&ran))
}

func TestWorkerPoolInlineFallback(t *testing.T) {
	// A pool that cannot keep up still runs every task, inline if needed.
	pool := NewWorkerPool(1)

	block := make(chan struct{})
	pool.Submit(func() { <-block })

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		pool.Submit(func() {
			atomic.AddInt64(&ran, 1)
			wg.Done()
		})
	}
	wg.Wait()
	close(block)
	pool.Shutdown()
	assert.Equal(t, int64(200), atomic.LoadInt64(&ran))
}

func TestWorkerPoolShutdownIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Shutdown()
	pool.Shutdown()
}
