package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/requestctx"
)

const notBeforeAttr = "notBefore"

// PubSubQueue publishes import jobs to a Pub/Sub topic and consumes them from
// a subscription. Delays are carried as a notBefore attribute so redeliveries
// survive process restarts.
type PubSubQueue struct {
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
	marshal      func(any) ([]byte, error)
	now          func() time.Time
}

var (
	_ Queue    = (*PubSubQueue)(nil)
	_ Consumer = (*PubSubQueue)(nil)
)

// NewPubSubQueue constructs a Pub/Sub backed import queue.
func NewPubSubQueue(topic *pubsub.Topic, subscription *pubsub.Subscription) (*PubSubQueue, error) {
	if topic == nil {
		return nil, errors.New("pubsub queue: topic is required")
	}
	if subscription == nil {
		return nil, errors.New("pubsub queue: subscription is required")
	}
	return &PubSubQueue{
		topic:        topic,
		subscription: subscription,
		marshal:      json.Marshal,
		now:          time.Now,
	}, nil
}

// Enqueue publishes the job for immediate delivery.
func (q *PubSubQueue) Enqueue(ctx context.Context, job domain.ImportJob) error {
	return q.publish(ctx, job, 0)
}

// EnqueueAfter publishes the job stamped with the earliest delivery time.
func (q *PubSubQueue) EnqueueAfter(ctx context.Context, job domain.ImportJob, delay time.Duration) error {
	return q.publish(ctx, job, delay)
}

func (q *PubSubQueue) publish(ctx context.Context, job domain.ImportJob, delay time.Duration) error {
	if q == nil || q.topic == nil {
		return errors.New("pubsub queue: not initialised")
	}

	data, err := q.marshal(job)
	if err != nil {
		return fmt.Errorf("marshal import job: %w", err)
	}

	attrs := map[string]string{
		"jobId":   job.ID,
		"attempt": strconv.Itoa(job.Attempt),
	}
	if delay > 0 {
		attrs[notBeforeAttr] = q.now().Add(delay).UTC().Format(time.RFC3339Nano)
	}

	result := q.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish import job: %w", err)
	}
	return nil
}

// Run receives messages until the context ends. A message stamped with a
// future notBefore is held on its receive slot until the stamp passes.
// Handler failures are nacked so delivery retries until the job record
// update sticks; the handler owns terminal outcomes and returns nil for them.
func (q *PubSubQueue) Run(ctx context.Context, handle Handler) error {
	if q == nil || q.subscription == nil {
		return errors.New("pubsub queue: not initialised")
	}
	if handle == nil {
		return errors.New("pubsub queue: handler is required")
	}

	err := q.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := requestctx.Logger(ctx)

		var job domain.ImportJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Error("discarding undecodable import job message", zap.Error(err))
			msg.Ack()
			return
		}

		if stamp := msg.Attributes[notBeforeAttr]; stamp != "" {
			notBefore, err := time.Parse(time.RFC3339Nano, stamp)
			if err == nil {
				if wait := notBefore.Sub(q.now()); wait > 0 {
					select {
					case <-time.After(wait):
					case <-ctx.Done():
						msg.Nack()
						return
					}
				}
			}
		}

		if err := handle(ctx, job); err != nil {
			logger.Warn("import job handler failed, message redelivered",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pubsub queue: receive: %w", err)
	}
	return nil
}
