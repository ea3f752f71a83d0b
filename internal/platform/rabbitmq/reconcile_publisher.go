package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"notemind/internal/model"
)

type ReconcilePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewReconcilePublisher(conn *amqp.Connection, queueName string) *ReconcilePublisher {
	return &ReconcilePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ReconcilePublisher) Publish(ctx context.Context, task model.ReconcileTask) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal reconcile task failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish reconcile task failed: %w", err)
	}
	return nil
}
