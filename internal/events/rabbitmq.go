package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmation is the broker's answer to one publish.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// channel publishes one message and hands back its confirmation.
type channel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel adapts *amqp.Channel in confirm mode.
type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

// RabbitPublisher publishes events to a topic exchange and waits for the
// broker's publisher confirm of each message before returning.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// DialRabbit connects, declares the exchange and enables confirms.
func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	p := newRabbitPublisher(amqpChannel{ch}, exchange)
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, exchange: exchange}
}

// Publish sends ev as a persistent JSON message routed by ev.RoutingKey().
// Each message carries its own confirmation, so a publish abandoned by its
// context never answers for a later one.
func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	conf, err := p.ch.publish(ctx, p.exchange, ev.RoutingKey(), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"order_id": ev.OrderID},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.RoutingKey(), err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm event %s: %w", ev.ID, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked event %s", ev.ID)
	}
	return nil
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
