package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// FailedDepth returns the number of messages in the failed queue
func (q *Queue) FailedDepth() (int, error) {
	info, err := q.channel.QueueInspect(FailedQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect failed queue: %w", err)
	}

	return info.Messages, nil
}

// RequeueFailed drains up to limit messages from the failed queue back
// onto the task queue. Used by operators after fixing whatever made the
// tasks fail. A limit <= 0 drains everything present at call time.
func (q *Queue) RequeueFailed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		depth, err := q.FailedDepth()
		if err != nil {
			return 0, err
		}
		limit = depth
	}

	requeued := 0
	for requeued < limit {
		msg, ok, err := q.channel.Get(FailedQueueName, false)
		if err != nil {
			return requeued, fmt.Errorf("failed to read failed queue: %w", err)
		}
		if !ok {
			break
		}

		// Publish a fresh copy before acking the old one so a broker
		// failure between the two cannot lose the task.
		if !json.Valid(msg.Body) {
			q.logger.Error("dropping malformed message from failed queue")
			msg.Nack(false, false)
			continue
		}
		err = q.channel.PublishWithContext(ctx,
			ExchangeName,
			TaskQueueName,
			false,
			false,
			amqp.Publishing{
				DeliveryMode: amqp.Persistent,
				ContentType:  "application/json",
				Body:         msg.Body,
				Timestamp:    time.Now(),
				MessageId:    msg.MessageId,
			},
		)
		if err != nil {
			msg.Nack(false, true)
			return requeued, fmt.Errorf("failed to requeue task: %w", err)
		}
		msg.Ack(false)
		requeued++
	}

	if requeued > 0 {
		q.logger.Infof("requeued %d failed tasks", requeued)
	}
	return requeued, nil
}
