package worker

import (
	"context"
	"sync"
	"time"

	"chatrelay/internal/logging"
)

// Task is one unit of background work. Its context is cancelled after the
// pool's task timeout.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of goroutines. Submit never
// blocks: when the queue is full the task is dropped.
type Pool struct {
	name        string
	tasks       chan Task
	workerCount int
	timeout     time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	once    sync.Once
}

func NewPool(name string, workerCount, queueSize int, timeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		name:        name,
		tasks:       make(chan Task, queueSize),
		workerCount: workerCount,
		timeout:     timeout,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logging.Debug("worker pool started", "pool", p.name, "workers", p.workerCount)
}

// Submit queues a task and reports whether it was accepted.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		logging.Warn("worker queue full, dropping task", "pool", p.name)
		return false
	}
}

// Stop rejects new tasks, runs the ones already queued and waits for the
// workers to exit.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
	logging.Debug("worker shutting down", "pool", p.name, "worker", id)
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("worker task panicked", "pool", p.name, "worker", id, "panic", r)
		}
	}()

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	task(ctx)
}
