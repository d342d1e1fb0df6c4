package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Run when the broker closes the delivery channel.
var ErrDeliveriesClosed = errors.New("rabbitmq deliveries closed")

// Consumer feeds every ledger event bound to its queue into a handler, one at a time.
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	handler messaging.EventHandler
	logger  *slog.Logger
}

// NewConsumer declares queue, binds it to every ledger routing key on exchange and limits
// unacknowledged deliveries to prefetch.
func NewConsumer(amqpURL, exchange, queue string, prefetch int, handler messaging.EventHandler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setupQueue(ch, exchange, queue, prefetch); err != nil {
		conn.Close()
		return nil, err
	}
	return &Consumer{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		handler: handler,
		logger:  logger.With(slog.String("component", "rabbitmq_consumer"), slog.String("queue", queue)),
	}, nil
}

func setupQueue(ch *amqp.Channel, exchange, queue string, prefetch int) error {
	if err := declareExchange(ch, exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, "ledger.#", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}
	return nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			c.deliver(ctx, d)
		}
	}
}

// deliver acks a handled message and requeues one the handler failed on.
// Undecodable messages are rejected; the catch-up poller still sees the stored event.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	var evt domain.Event
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.logger.Error("Dropping undecodable message", slog.String("message_id", d.MessageId), slog.String("error", err.Error()))
		_ = d.Reject(false)
		return
	}
	if err := c.handler.Handle(ctx, evt); err != nil {
		c.logger.Warn("Handler failed, requeueing",
			slog.String("event_id", evt.EventID), slog.String("routing_key", d.RoutingKey), slog.String("error", err.Error()))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close closes the channel and the connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
