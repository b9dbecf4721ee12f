package jobs

import (
	"context"
	"time"

	domain "github.com/supplyline/api/internal/domain"
)

// Handler consumes one queued import attempt. Returning an error marks the
// delivery as failed; the queue does not redeliver on its own, retries are
// scheduled explicitly through EnqueueAfter.
type Handler func(ctx context.Context, job domain.ImportJob) error

// Queue accepts import attempts for asynchronous execution.
type Queue interface {
	// Enqueue hands the job to a worker as soon as one is free.
	Enqueue(ctx context.Context, job domain.ImportJob) error
	// EnqueueAfter delivers the job no earlier than delay from now. The wait
	// lives in the queue, workers never sleep while holding a slot.
	EnqueueAfter(ctx context.Context, job domain.ImportJob, delay time.Duration) error
}

// Consumer drives queued jobs through a handler until the context ends.
type Consumer interface {
	Run(ctx context.Context, handle Handler) error
}
