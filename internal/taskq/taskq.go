// Package taskq is a small channel-backed job queue. Producers submit a job
// and get a handle; a fixed worker pool drains the channel. Nothing else
// couples the submitter to the runner.
package taskq

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Handle tracks a submitted job.
type Handle struct {
	ID   string
	done chan struct{}
	err  error
}

// Done is closed when the job finishes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the job's error. Valid only after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type task struct {
	job    Job
	handle *Handle
}

// Queue runs submitted jobs on a fixed pool of workers.
type Queue struct {
	tasks  chan task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New starts a queue with the given worker count and buffer size.
func New(workers, buffer int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:  make(chan task, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit enqueues a job. It returns an error instead of blocking when the
// queue buffer is full or the queue has shut down.
func (q *Queue) Submit(job Job) (*Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, eris.New("taskq: queue is shut down")
	}

	h := &Handle{ID: uuid.NewString(), done: make(chan struct{})}
	select {
	case q.tasks <- task{job: job, handle: h}:
		return h, nil
	default:
		return nil, eris.New("taskq: queue is full")
	}
}

// Shutdown stops accepting jobs, cancels the worker context, and waits for
// in-flight jobs to finish.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cancel()
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for t := range q.tasks {
		err := t.job(q.ctx)
		t.handle.err = err
		close(t.handle.done)
		if err != nil {
			zap.L().Warn("taskq: job failed",
				zap.Int("worker", n),
				zap.String("job_id", t.handle.ID),
				zap.Error(err),
			)
		}
	}
}
