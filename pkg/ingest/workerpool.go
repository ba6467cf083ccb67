package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Job is a unit of work submitted to the WorkerPool.
// It returns an error to indicate failure; callers may treat errors as they see fit.
type Job func(ctx context.Context) error

// WorkerPool runs jobs using a fixed number of goroutines. It backs every
// fan-out in the module: documents of a batch, dictionary lookups of a
// document and result preparation before persistence.
type WorkerPool struct {
	jobs    chan Job
	quit    chan struct{}
	quitMu  sync.Once
	wg      sync.WaitGroup
	workers int

	// mu is held shared by submitters and exclusively by Close, so jobs is
	// never closed under a pending send.
	mu     sync.RWMutex
	closed bool

	// OnError, when set before Start, receives job errors and recovered panics.
	OnError func(error)

	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers
// and job queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Start begins the worker goroutines and listens for jobs until ctx is done or Close is called.
// Jobs still queued when ctx is done are dropped.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := p.run(ctx, job); err != nil {
						p.failed.Add(1)
						if p.OnError != nil {
							p.OnError(err)
						}
						continue
					}
					p.succeeded.Add(1)
				}
			}
		}()
	}
}

// run executes job, turning a panic into an error so one bad job does not
// take the worker down with it.
func (p *WorkerPool) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker pool: job panicked: %v", r)
		}
	}()
	return job(ctx)
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed once Close has been called.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx enqueues a job but gives up with ctx.Err() if ctx is done
// before there is room in the queue.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs and waits for workers to finish the queued ones.
// Blocked submitters return ErrPoolClosed.
func (p *WorkerPool) Close() {
	p.quitMu.Do(func() { close(p.quit) })

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Counts returns how many jobs finished without error and how many failed
// or panicked. Dropped jobs are in neither.
func (p *WorkerPool) Counts() (succeeded, failed int64) {
	return p.succeeded.Load(), p.failed.Load()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = errors.New("worker pool closed")
