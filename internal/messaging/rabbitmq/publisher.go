// Package rabbitmq carries ledger events over a durable RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 10 * time.Second

// RoutingKey is ledger.{aggregate type}.{event type}, e.g. ledger.journal.JournalPosted.
func RoutingKey(evt domain.Event) string {
	return fmt.Sprintf("ledger.%s.%s", evt.AggregateType, evt.Type)
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func dial(rawURL string) (*amqp.Connection, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
}

// Publisher publishes each event as a persistent JSON message.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger

	mu      sync.Mutex
	channel *amqp.Channel
}

var _ messaging.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to amqpURL and declares exchange.
func NewPublisher(amqpURL, exchange string, logger *slog.Logger) (*Publisher, error) {
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
	if err := declareExchange(ch, exchange); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		channel:  ch,
		logger:   logger.With(slog.String("component", "rabbitmq_publisher")),
	}, nil
}

// Publish sends events in order. On a channel failure the channel is reopened once.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, evt := range events {
		msg, err := toPublishing(evt)
		if err != nil {
			return err
		}
		key := RoutingKey(evt)
		if err := p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
			p.logger.Warn("Publish failed, reopening channel", slog.String("routing_key", key), slog.String("error", err.Error()))
			if reopenErr := p.reopen(); reopenErr != nil {
				return fmt.Errorf("publish %s: %w", evt.EventID, errors.Join(err, reopenErr))
			}
			if err := p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
				return fmt.Errorf("publish %s: %w", evt.EventID, err)
			}
		}
	}
	return nil
}

func (p *Publisher) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		ch.Close()
		return err
	}
	p.channel.Close()
	p.channel = ch
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func toPublishing(evt domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.EventID,
		Type:         string(evt.Type),
		Timestamp:    evt.OccurredAt,
		Body:         body,
	}, nil
}
