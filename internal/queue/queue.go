// Package queue dispatches clip tasks to workers over RabbitMQ. A task
// whose handler fails is dead-lettered rather than requeued: the worker
// has already recorded the failure in the database, and a deterministic
// failure would otherwise loop forever.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

const (
	ExchangeName           = "playlet.tasks"
	TaskQueueName          = "tasks"
	DeadLetterExchangeName = "playlet.tasks.dlx"
	FailedQueueName        = "tasks.failed"
)

// Queue provides message queue operations
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logging.Logger
}

// New connects to RabbitMQ and declares the task topology: a durable
// direct exchange and queue, with rejected deliveries dead-lettered to
// the failed queue.
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, logger: logger}
	if err := q.declareTopology(); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return q, nil
}

// declareTopology sets up exchanges, queues and bindings. The dead
// letter side is declared first because the task queue references it.
func (q *Queue) declareTopology() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare dead letter exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		FailedQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare failed queue: %w", err)
	}

	err = q.channel.QueueBind(FailedQueueName, FailedQueueName, DeadLetterExchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind failed queue: %w", err)
	}

	err = q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	taskArgs := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchangeName,
		"x-dead-letter-routing-key": FailedQueueName,
	}
	_, err = q.channel.QueueDeclare(
		TaskQueueName,
		true,
		false,
		false,
		false,
		taskArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare task queue: %w", err)
	}

	err = q.channel.QueueBind(TaskQueueName, TaskQueueName, ExchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind task queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishTask publishes a clip task to the queue
func (q *Queue) PublishTask(ctx context.Context, task *models.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		TaskQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			MessageId:    task.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	return nil
}

// ConsumeTasks starts consuming tasks from the queue. Prefetch is one:
// a worker holds a single unacked clip task at a time because each run
// occupies its ffmpeg capacity for minutes.
func (q *Queue) ConsumeTasks(ctx context.Context, handler func(*models.Task) error) error {
	err := q.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		TaskQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.handleDelivery(msg, handler)
			}
		}
	}()

	return nil
}

// handleDelivery decides the fate of one delivery: acked on success,
// nacked without requeue otherwise, which routes it to the failed queue.
func (q *Queue) handleDelivery(msg amqp.Delivery, handler func(*models.Task) error) {
	var task models.Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		q.logger.WithError(err).Error("dropping malformed task message")
		msg.Nack(false, false)
		return
	}

	if err := handler(&task); err != nil {
		q.logger.WithTaskID(task.ID).WithError(err).Warn("task rejected, dead-lettering")
		msg.Nack(false, false)
		return
	}
	msg.Ack(false)
}

// QueueDepth returns the number of messages waiting in the task queue
func (q *Queue) QueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(TaskQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
