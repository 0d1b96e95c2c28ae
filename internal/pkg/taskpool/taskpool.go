// Package taskpool provides the two execution contexts of the write path:
// a small bounded pool for uploads and a single serialized worker for
// destructive operations.
package taskpool

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// ErrSaturated is returned when the queue is full. Callers should treat it
// as retryable; nothing is ever queued indefinitely.
var ErrSaturated = errors.New("task queue saturated")

// Pool runs submitted tasks on a fixed number of workers over a bounded
// queue. With one worker it doubles as a serialized executor: tasks run in
// submission order and never overlap.
type Pool struct {
	name    string
	workers int
	jobs    chan func()
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

func NewPool(name string, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		name:    name,
		workers: workers,
		jobs:    make(chan func(), queueSize),
	}
}

// NewSerial returns a single-worker pool for operations that must not race.
func NewSerial(name string, queueSize int) *Pool {
	return NewPool(name, 1, queueSize)
}

// Start launches the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Infof("[TaskPool] %s: started %d workers", p.name, p.workers)
}

// Stop closes the queue and waits for in-flight tasks to finish. Accepted
// tasks always run to completion.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("[TaskPool] %s: stopped", p.name)
}

// Submit enqueues a task, failing fast with ErrSaturated when the queue is
// full.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return errors.New("task pool not running")
	}
	p.mu.Unlock()

	select {
	case p.jobs <- task:
		return nil
	default:
		log.Warnf("[TaskPool] %s: queue saturated, rejecting task", p.name)
		return ErrSaturated
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.jobs {
		task()
	}
	log.Debugf("[TaskPool] %s: worker %d stopped", p.name, id)
}
