package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
)

const ChangeExchange = "order_changes"

// dialChanges connects to the broker and declares the order change exchange.
func dialChanges(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ChangeExchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare %s exchange: %w", ChangeExchange, err)
	}
	return conn, ch, nil
}

func closeChanges(conn *amqp.Connection, ch *amqp.Channel) error {
	if err := ch.Close(); err != nil {
		conn.Close()
		return err
	}
	return conn.Close()
}

// ChangePublisher forwards order journal entries to a fanout exchange. Each
// message carries the publishing instance as its AppId.
type ChangePublisher struct {
	instance string
	conn     *amqp.Connection
	channel  *amqp.Channel
	log      *logrus.Logger
}

func NewChangePublisher(url, instance string, log *logrus.Logger) (*ChangePublisher, error) {
	conn, ch, err := dialChanges(url)
	if err != nil {
		return nil, err
	}
	return &ChangePublisher{instance: instance, conn: conn, channel: ch, log: log}, nil
}

func (p *ChangePublisher) HandleChange(ctx context.Context, change models.DBChange) error {
	if change.TableName != "orders" && change.TableName != "order_items" {
		return nil
	}

	body, err := json.Marshal(change)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		ChangeExchange, // exchange
		"",             // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			AppId:        p.instance,
			Body:         body,
			Timestamp:    change.ChangedAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish change %d: %w", change.ID, err)
	}

	p.log.WithField("change_id", change.ID).Debug("change published")
	return nil
}

func (p *ChangePublisher) Close() error {
	return closeChanges(p.conn, p.channel)
}
