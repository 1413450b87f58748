// Package events publishes message-lifecycle events to an AMQP topic
// exchange for downstream consumers (analytics, CRM sync). The broker is
// optional; without AMQP_URL the noop publisher is wired instead.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Routing keys.
const (
	KeyMessageReceived = "message.received"
	KeyMessageSent     = "message.sent"
)

type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	TenantID string    `json:"tenant_id"`
	Time     time.Time `json:"time"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, key, tenantID string, data any) error
	Close() error
}

type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

func New(url, exchange string, logger *slog.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &amqpPublisher{conn: conn, exchange: exchange, log: logger}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, key, tenantID string, data any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	env := Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     key,
			TenantID: tenantID,
			Time:     time.Now(),
		},
		Data: data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.Meta.ID,
			Timestamp:    env.Meta.Time,
			Body:         body,
		},
	)
	if err == nil {
		p.log.Info("event published", slog.String("key", key), slog.String("tenant", tenantID))
	}
	return err
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

type noopPublisher struct {
	log *slog.Logger
}

// NewNoop returns a publisher that drops events; used when no broker is
// configured.
func NewNoop(logger *slog.Logger) Publisher {
	return &noopPublisher{log: logger}
}

func (p *noopPublisher) Publish(ctx context.Context, key, tenantID string, data any) error {
	p.log.Debug("no broker configured, event dropped", slog.String("key", key))
	return nil
}

func (p *noopPublisher) Close() error { return nil }
