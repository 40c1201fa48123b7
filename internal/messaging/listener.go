// Package messaging consumes catalog change events from RabbitMQ and drops
// the cached catalog snapshot when they arrive.
package messaging

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ChangeEvent is published by catalog writers after a commit.
type ChangeEvent struct {
	Kind string      `json:"kind"` // "category", "attribute", "product", "filter_settings", "seller"
	IDs  []uuid.UUID `json:"ids,omitempty"`
}

// Invalidator is implemented by *pipeline.Invalidator.
type Invalidator interface {
	Invalidate(ctx context.Context, source string) error
}

// Channel is the part of *amqp.Channel the listener uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// DeclareBindAndConsume binds an exclusive, server-named queue to topic on
// exchange. Every replica gets its own queue so each one sees every event.
func DeclareBindAndConsume(ch Channel, exchange, topic string) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, topic, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue to %s: %w", topic, err)
	}
	return ch.Consume(q.Name, "", false, true, false, false, nil)
}

type Listener struct {
	invalidator Invalidator
	logger      *zap.Logger
	conn        *amqp.Connection
	ch          Channel
}

func NewListener(invalidator Invalidator, logger *zap.Logger) *Listener {
	return &Listener{invalidator: invalidator, logger: logger}
}

// Connect dials url, binds to topic and consumes in the background until ctx
// is done or the broker closes the channel.
func (l *Listener) Connect(ctx context.Context, url, exchange, topic string) error {
	conn, err := amqp.DialConfig(url, amqp.Config{Properties: amqp.NewConnectionProperties()})
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	l.conn, l.ch = conn, ch
	return l.Listen(ctx, ch, exchange, topic)
}

// Listen starts consuming on an already open channel.
func (l *Listener) Listen(ctx context.Context, ch Channel, exchange, topic string) error {
	msgs, err := DeclareBindAndConsume(ch, exchange, topic)
	if err != nil {
		return err
	}
	l.logger.Info("listening for catalog changes", zap.String("exchange", exchange), zap.String("topic", topic))
	go l.Consume(ctx, msgs)
	return nil
}

// Consume processes deliveries until ctx is done or msgs is closed.
func (l *Listener) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				l.logger.Warn("catalog change channel closed")
				return
			}
			l.process(ctx, d)
		}
	}
}

func (l *Listener) process(ctx context.Context, d amqp.Delivery) {
	var event ChangeEvent
	if err := sonic.Unmarshal(d.Body, &event); err != nil {
		l.logger.Warn("dropping malformed catalog change", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		if err := d.Reject(false); err != nil {
			l.logger.Error("reject failed", zap.Error(err))
		}
		return
	}
	if err := l.invalidator.Invalidate(ctx, "amqp"); err != nil {
		l.logger.Error("catalog change not applied", zap.String("kind", event.Kind), zap.Error(err))
		if err := d.Nack(false, true); err != nil {
			l.logger.Error("nack failed", zap.Error(err))
		}
		return
	}
	l.logger.Debug("catalog change applied", zap.String("kind", event.Kind), zap.Int("ids", len(event.IDs)))
	if err := d.Ack(false); err != nil {
		l.logger.Error("ack failed", zap.Error(err))
	}
}

// Close releases the channel and connection opened by Connect.
func (l *Listener) Close() error {
	if l.ch != nil {
		l.ch.Close()
	}
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
