package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"deepchat/internal/model"
	"deepchat/internal/repository"
)

// MirrorWorker drains the mirror queue and writes accepted turns into the
// session store. Turns for sessions deleted in the meantime are dropped.
type MirrorWorker struct {
	conn      *amqp.Connection
	repo      *repository.MessageRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMirrorWorker(conn *amqp.Connection, repo *repository.MessageRepository, queueName string) *MirrorWorker {
	return &MirrorWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *MirrorWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var msg model.Message
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					logrus.Warnf("mirror worker decode turn failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				switch appendDisposition(w.repo.Append(&msg), d.Redelivered) {
				case dispositionAck:
					_ = d.Ack(false)
				case dispositionRequeue:
					logrus.Warnf("mirror worker persist turn failed, requeueing (session %d)", msg.SessionID)
					_ = d.Nack(false, true)
				case dispositionDrop:
					logrus.Warnf("mirror worker dropping turn after retry (session %d)", msg.SessionID)
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	return nil
}

const (
	dispositionAck = iota
	dispositionRequeue
	dispositionDrop
)

// appendDisposition decides what happens to a delivery after a persist
// attempt. Turns for vanished sessions are acknowledged and forgotten; a
// transient store failure gets one redelivery before the turn is dropped.
func appendDisposition(err error, redelivered bool) int {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, repository.ErrSessionNotFound):
		// Session was deleted after the turn was accepted.
		return dispositionAck
	case redelivered:
		return dispositionDrop
	default:
		return dispositionRequeue
	}
}

func (w *MirrorWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
