package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned by Submit after Close
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of work run by the pool
type Task func(ctx context.Context)

type job struct {
	ctx  context.Context
	task Task
}

// Pool runs submitted tasks on a fixed number of goroutines. Tasks waiting
// for a free worker are queued, so Submit never blocks.
type Pool struct {
	Concurrency int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool and starts its workers
func NewPool(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}

	p := &Pool{Concurrency: concurrency}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < p.Concurrency; i++ {
		p.wg.Add(1)
		go p.processLoop(i)
	}
	return p
}

// Submit queues a task and returns immediately. ctx is handed to the task.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.queue = append(p.queue, job{ctx: ctx, task: task})
	p.cond.Signal()
	return nil
}

// Pending returns the number of queued tasks not yet picked up by a worker
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting tasks and waits until queued and running ones finish
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) next() (job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return job{}, false
	}

	j := p.queue[0]
	p.queue[0] = job{}
	p.queue = p.queue[1:]
	return j, true
}

func (p *Pool) processLoop(id int) {
	defer p.wg.Done()
	log.Debug().Int("worker", id).Msg("Worker started")

	for {
		j, ok := p.next()
		if !ok {
			return
		}
		p.handle(id, j)
	}
}

func (p *Pool) handle(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("worker", id).Interface("panic", r).Msg("Task panicked")
		}
	}()
	j.task(j.ctx)
}
