package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of an AMQP channel the notifier publishes through.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// event is the JSON body of a published notification.
type event struct {
	Kind      Kind      `json:"kind"`
	File      string    `json:"file"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// AMQP publishes messages to a topic exchange. The routing key is
// "<prefix>.<kind>".
type AMQP struct {
	ch       Channel
	exchange string
	prefix   string
	now      func() time.Time
	closers  []func() error
}

// NewAMQP returns a Notifier publishing on ch.
func NewAMQP(ch Channel, exchange, routingPrefix string) *AMQP {
	return &AMQP{ch: ch, exchange: exchange, prefix: routingPrefix, now: time.Now}
}

// DialAMQP connects to the broker at url and declares a durable topic
// exchange.
func DialAMQP(url, exchange, routingPrefix string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
	}

	n := NewAMQP(ch, exchange, routingPrefix)
	n.closers = []func() error{ch.Close, conn.Close}
	return n, nil
}

// Notify publishes msg as a persistent JSON message.
func (a *AMQP) Notify(ctx context.Context, msg Message) error {
	now := a.now()
	body, err := json.Marshal(event{
		Kind:      msg.Kind,
		File:      msg.File,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("amqp: encoding message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	}
	key := a.prefix + "." + string(msg.Kind)
	if err := a.ch.PublishWithContext(ctx, a.exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}

// Close closes the channel and connection opened by DialAMQP.
func (a *AMQP) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
