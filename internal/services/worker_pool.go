package services

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkerPool runs detached jobs: the login-time pull, read-receipt scans and
// fan-out for large groups. Session actors stay responsive while the pool
// drains the queue.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var Workers *WorkerPool

// InitWorkers starts the shared pool with n workers.
func InitWorkers(n int) {
	Workers = NewWorkerPool(n)
	Workers.Start()
}

func NewWorkerPool(n int) *WorkerPool {
	if n < 1 {
		n = 1
	}
	pool := &WorkerPool{tasks: make(chan func(), n*64)}
	pool.wg.Add(n)
	for i := 0; i < n; i++ {
		go pool.run()
	}
	return pool
}

// Start exists for lifecycle symmetry; workers spin up in NewWorkerPool.
func (p *WorkerPool) Start() {}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a job, falling back to inline execution when the queue is
// saturated so no job is ever lost.
func (p *WorkerPool) Submit(task func()) {
	select {
	case p.tasks <- task:
	default:
		logrus.Warn("worker queue saturated, running task inline")
		task()
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() { close(p.tasks) })
	p.wg.Wait()
}
