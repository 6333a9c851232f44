package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"deepchat/internal/model"
)

// MirrorPublisher enqueues accepted conversation turns for asynchronous
// persistence. Callers treat publish failures as best-effort: the visible
// conversation is never rolled back because a mirror write failed.
type MirrorPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewMirrorPublisher(conn *amqp.Connection, queueName string) *MirrorPublisher {
	return &MirrorPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *MirrorPublisher) Publish(ctx context.Context, msg model.Message) error {
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

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal turn payload failed: %w", err)
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
		return fmt.Errorf("publish turn failed: %w", err)
	}
	return nil
}
