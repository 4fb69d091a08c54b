package worker

import (
	"context"
	"errors"
	"log"
	"sync"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// Pool runs jobs on in-process goroutines. It is used when no broker is configured.
type Pool struct {
	handler     Handler
	concurrency int
	jobs        chan Job

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(handler Handler, concurrency, queueSize int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		handler:     handler,
		concurrency: concurrency,
		jobs:        make(chan Job, queueSize),
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if err := p.handler.Handle(workerCtx, job); err != nil {
					log.Printf("worker handle %s job %s failed: %v", job.Kind, job.ID, err)
				}
			}
		}()
	}
	return nil
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(_ context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
}
