package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/supplyline/api/internal/domain"
)

func TestMemoryQueueDeliversJobs(t *testing.T) {
	q := NewMemoryQueue(4, 2)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{})

	go func() {
		_ = q.Run(ctx, func(ctx context.Context, job domain.ImportJob) error {
			mu.Lock()
			seen[job.ID]++
			if len(seen) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	for _, id := range []string{"job-a", "job-b", "job-c"} {
		if err := q.Enqueue(ctx, domain.ImportJob{ID: id, URL: "https://example.com/c.yaml"}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs were not delivered: %v", seen)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, id := range []string{"job-a", "job-b", "job-c"} {
		if seen[id] != 1 {
			t.Fatalf("expected exactly one delivery for %s, got %d", id, seen[id])
		}
	}
}

func TestMemoryQueueEnqueueAfterDelaysDelivery(t *testing.T) {
	q := NewMemoryQueue(4, 1)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan time.Time, 1)
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, job domain.ImportJob) error {
			delivered <- time.Now()
			return nil
		})
	}()

	const delay = 150 * time.Millisecond
	start := time.Now()
	if err := q.EnqueueAfter(ctx, domain.ImportJob{ID: "job-delayed", Attempt: 1}, delay); err != nil {
		t.Fatalf("enqueue after: %v", err)
	}

	select {
	case at := <-delivered:
		if elapsed := at.Sub(start); elapsed < delay {
			t.Fatalf("job delivered after %v, want at least %v", elapsed, delay)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("delayed job never delivered")
	}
}

func TestMemoryQueueEnqueueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1, 1)
	defer q.Close()

	// Fill the buffer with no consumer running.
	if err := q.Enqueue(context.Background(), domain.ImportJob{ID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, domain.ImportJob{ID: "job-2"}); err == nil {
		t.Fatalf("expected context error when buffer is full")
	}
}

func TestMemoryQueueCloseDropsPendingTimers(t *testing.T) {
	q := NewMemoryQueue(4, 1)

	if err := q.EnqueueAfter(context.Background(), domain.ImportJob{ID: "job-late"}, time.Hour); err != nil {
		t.Fatalf("enqueue after: %v", err)
	}
	q.Close()

	if err := q.Enqueue(context.Background(), domain.ImportJob{ID: "job-after-close"}); err == nil {
		t.Fatalf("expected enqueue on closed queue to fail")
	}
}

func TestMemoryQueueCloseReleasesFiredTimerOnFullBuffer(t *testing.T) {
	q := NewMemoryQueue(1, 1)

	// Fill the buffer with no consumer so the fired timer cannot deliver.
	if err := q.Enqueue(context.Background(), domain.ImportJob{ID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.EnqueueAfter(context.Background(), domain.ImportJob{ID: "job-blocked"}, 10*time.Millisecond); err != nil {
		t.Fatalf("enqueue after: %v", err)
	}

	// Let the timer fire and block on the send before closing.
	time.Sleep(50 * time.Millisecond)
	q.Close()

	// The buffered job survives; the blocked delayed job is dropped rather
	// than delivered by a stuck goroutine.
	select {
	case job := <-q.jobs:
		if job.ID != "job-1" {
			t.Fatalf("expected buffered job-1, got %s", job.ID)
		}
	default:
		t.Fatalf("expected buffered job to remain after close")
	}

	time.Sleep(50 * time.Millisecond)
	select {
	case job := <-q.jobs:
		t.Fatalf("delayed job %s delivered after close", job.ID)
	default:
	}
}
