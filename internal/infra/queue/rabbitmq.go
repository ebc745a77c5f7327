// Package queue publishes lead lifecycle events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

var tracer = otel.Tracer("queue")

// DefaultExchange is the topic exchange lead events are published to.
const DefaultExchange = "crm.lead-events"

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes LeadEvents as persistent JSON messages on a topic
// exchange, routed by lead.<kind>. Implements port.EventPublisher.
type RabbitMQ struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
}

// Dial connects to url, opens a channel and declares the exchange.
func Dial(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch and returns a
// publisher bound to it.
func NewPublisher(ch Channel, exchange string) (*RabbitMQ, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQ{ch: ch, exchange: exchange}, nil
}

// RoutingKey returns the routing key for an event kind.
func RoutingKey(kind domain.EventKind) string {
	return "lead." + string(kind)
}

// Publish sends one event.
func (r *RabbitMQ) Publish(ctx context.Context, event domain.LeadEvent) error {
	ctx, span := tracer.Start(ctx, "RabbitMQ.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", event.LeadID),
		attribute.String("event.kind", string(event.Kind)),
	)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	err = r.ch.PublishWithContext(ctx,
		r.exchange,
		RoutingKey(event.Kind),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    occurred,
			Type:         string(event.Kind),
			Headers: amqp.Table{
				"lead_id":    event.LeadID,
				"actor_role": string(event.ActorRole),
			},
			Body: body,
		},
	)
	if err != nil {
		return &domain.ErrExternalService{Service: "rabbitmq", Err: err}
	}
	return nil
}

// Healthy reports whether the broker connection is open. A publisher built
// from a bare channel reports true.
func (r *RabbitMQ) Healthy() bool {
	return r.conn == nil || !r.conn.IsClosed()
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() error {
	err := r.ch.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
