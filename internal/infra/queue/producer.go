package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ReconcileTask is one webhook-triggered reconciliation request. Delivery
// is at-least-once; the reconciler tolerates duplicates, the TaskID exists
// so duplicate deliveries can be traced in the logs.
type ReconcileTask struct {
	TaskID     string `json:"task_id"`
	LeadID     string `json:"lead_id"`
	StatusID   int    `json:"status_id"`
	PipelineID int    `json:"pipeline_id"`
}

type ProducerInterface interface {
	PublishReconcile(ctx context.Context, task ReconcileTask) error
}

type RabbitMQProducer struct {
	Ch *amqp.Channel
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishReconcile(ctx context.Context, task ReconcileTask) error {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: marshal task: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			MessageId:    task.TaskID,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("queue: publish reconcile task: %w", err)
	}
	return nil
}
