package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/amo-sbp-bridge/internal/usecase"
)

// Reconciler is what the worker drives for each dequeued task.
type Reconciler interface {
	Execute(ctx context.Context, input usecase.ReconcileLeadInput) (usecase.Outcome, error)
}

// Worker consumes reconcile tasks and runs them through the retry policy.
// Manual ack: a task is only confirmed after the pass succeeded (or was a
// policy no-op); exhausted retries nack without requeue, into the DLQ.
type Worker struct {
	Channel   *amqp.Channel
	Reconcile Reconciler

	RetryAttempts  int
	RetryBaseDelay time.Duration
}

func NewWorker(ch *amqp.Channel, reconcile Reconciler, retryAttempts int, retryBaseDelay time.Duration) *Worker {
	return &Worker{
		Channel:        ch,
		Reconcile:      reconcile,
		RetryAttempts:  retryAttempts,
		RetryBaseDelay: retryBaseDelay,
	}
}

func (w *Worker) Start(ctx context.Context, queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual is safer)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ worker: failed to register consumer: %s", err)
	}

	log.Printf(" [*] worker: waiting for reconcile tasks on %q", queueName)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ worker: context cancelled, stopping")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Println("⚠️ worker: delivery channel closed, stopping")
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var task ReconcileTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		log.Printf("❌ worker: malformed task payload: %s — rejecting without requeue", err)
		// Poison message; requeueing it would wedge the queue.
		d.Nack(false, false)
		return
	}

	log.Printf("📥 worker: task %s for lead %s", task.TaskID, task.LeadID)

	input := usecase.ReconcileLeadInput{
		LeadID:     task.LeadID,
		StatusID:   task.StatusID,
		PipelineID: task.PipelineID,
	}

	var outcome usecase.Outcome
	err := usecase.Retry(ctx, w.RetryAttempts, w.RetryBaseDelay, func(ctx context.Context) error {
		var rerr error
		outcome, rerr = w.Reconcile.Execute(ctx, input)
		return rerr
	})
	if err != nil {
		log.Printf("❌ worker: task %s failed after retries: %v — sending to DLQ", task.TaskID, err)
		middleware.RecordIntegrationError("reconcile")
		d.Nack(false, false)
		return
	}

	switch outcome {
	case usecase.OutcomeIssued, usecase.OutcomeReissued, usecase.OutcomeResumed:
		middleware.RecordLinkCreated(string(outcome))
	}

	log.Printf("✅ worker: task %s done: %s", task.TaskID, outcome)
	d.Ack(false)
}
