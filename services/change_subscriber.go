package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
)

// ChangeSubscriber applies order changes published by other instances. The
// change monitor marks journal rows processed once for the whole database, so
// this is how a second instance learns about writes it did not make.
type ChangeSubscriber struct {
	instance string
	handler  ChangeHandler
	log      *logrus.Logger

	conn     *amqp.Connection
	channel  *amqp.Channel
	messages <-chan amqp.Delivery
}

func NewChangeSubscriber(url, instance string, handler ChangeHandler, log *logrus.Logger) (*ChangeSubscriber, error) {
	conn, ch, err := dialChanges(url)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // name (let server generate)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		closeChanges(conn, ch)
		return nil, fmt.Errorf("failed to declare change queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,         // queue name
		"",             // routing key
		ChangeExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		closeChanges(conn, ch)
		return nil, fmt.Errorf("failed to bind change queue: %w", err)
	}

	messages, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		closeChanges(conn, ch)
		return nil, fmt.Errorf("failed to start consuming changes: %w", err)
	}

	return &ChangeSubscriber{
		instance: instance,
		handler:  handler,
		log:      log,
		conn:     conn,
		channel:  ch,
		messages: messages,
	}, nil
}

// Run feeds deliveries to the handler until ctx is cancelled or the broker
// closes the channel.
func (s *ChangeSubscriber) Run(ctx context.Context) error {
	s.log.WithField("exchange", ChangeExchange).Info("change subscriber started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-s.messages:
			if !ok {
				return errors.New("change delivery channel closed")
			}
			if err := s.handleDelivery(ctx, msg); err != nil {
				s.log.WithError(err).Warn("failed to apply published change")
			}
		}
	}
}

func (s *ChangeSubscriber) handleDelivery(ctx context.Context, msg amqp.Delivery) error {
	if msg.AppId == s.instance {
		return nil
	}

	var change models.DBChange
	if err := json.Unmarshal(msg.Body, &change); err != nil {
		return fmt.Errorf("malformed change message: %w", err)
	}
	s.log.WithFields(logrus.Fields{"change_id": change.ID, "from": msg.AppId}).Debug("applying published change")
	return s.handler.HandleChange(ctx, change)
}

func (s *ChangeSubscriber) Close() error {
	return closeChanges(s.conn, s.channel)
}
