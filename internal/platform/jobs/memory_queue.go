package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/requestctx"
)

// MemoryQueue is an in-process queue backed by a buffered channel. It is the
// default transport for single-node deployments and for tests.
type MemoryQueue struct {
	jobs    chan domain.ImportJob
	workers int
	done    chan struct{}

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

var (
	_ Queue    = (*MemoryQueue)(nil)
	_ Consumer = (*MemoryQueue)(nil)
)

// NewMemoryQueue constructs a queue with the given buffer size and worker count.
func NewMemoryQueue(buffer, workers int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 4
	}
	return &MemoryQueue{
		jobs:    make(chan domain.ImportJob, buffer),
		workers: workers,
		done:    make(chan struct{}),
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Enqueue hands the job to the buffer, blocking until space frees up or the
// context ends.
func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.ImportJob) error {
	if q == nil {
		return errors.New("memory queue not initialised")
	}
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return errors.New("memory queue is closed")
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueAfter schedules the job for delivery once delay elapses. The timer is
// dropped when the queue closes before it fires.
func (q *MemoryQueue) EnqueueAfter(ctx context.Context, job domain.ImportJob, delay time.Duration) error {
	if q == nil {
		return errors.New("memory queue not initialised")
	}
	if delay <= 0 {
		return q.Enqueue(ctx, job)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("memory queue is closed")
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		// The send must not outlive the queue; a fired timer racing a full
		// buffer drops the job once Close is called.
		select {
		case q.jobs <- job:
		case <-q.done:
		}
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
	return nil
}

// Run consumes jobs with a fixed pool of workers until the context ends.
func (q *MemoryQueue) Run(ctx context.Context, handle Handler) error {
	if q == nil {
		return errors.New("memory queue not initialised")
	}
	if handle == nil {
		return errors.New("memory queue: handler is required")
	}

	var wg sync.WaitGroup
	wg.Add(q.workers)
	for i := 0; i < q.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-q.jobs:
					if err := handle(ctx, job); err != nil {
						requestctx.Logger(ctx).Warn("import job handler failed",
							zap.String("job_id", job.ID),
							zap.Int("attempt", job.Attempt),
							zap.Error(err))
					}
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Close stops pending timers. Jobs already buffered are left for Run to drain.
func (q *MemoryQueue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
	for timer := range q.timers {
		timer.Stop()
		delete(q.timers, timer)
	}
}
