// Package messaging forwards turn domain events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// DefaultQueue receives every turn event.
const DefaultQueue = "turn.events"

const publishTimeout = 5 * time.Second

// Envelope is the message body written to the queue.
type Envelope struct {
	EventType   string             `json:"event_type"`
	AggregateID string             `json:"aggregate_id"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Version     int                `json:"version"`
	Payload     events.DomainEvent `json:"payload"`
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
}

type dialFunc func(url string) (amqpConnection, error)

type connAdapter struct {
	conn *amqp.Connection
}

func (c connAdapter) Channel() (amqpChannel, error) { return c.conn.Channel() }
func (c connAdapter) Close() error                  { return c.conn.Close() }

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return connAdapter{conn: conn}, nil
}

// FailureCounter is told about every message that could not be published.
type FailureCounter interface {
	PublishFailed(sink string)
}

// TurnEventPublisher is an event handler that writes turn events as
// persistent JSON messages to a durable queue. The connection is opened on
// first use and re-opened after a failure.
type TurnEventPublisher struct {
	url     string
	queue   string
	dial    dialFunc
	logger  logger.Interface
	failure FailureCounter

	mu   sync.Mutex
	conn amqpConnection
	ch   amqpChannel
}

func NewTurnEventPublisher(url, queue string, failure FailureCounter, logger logger.Interface) *TurnEventPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &TurnEventPublisher{
		url:     url,
		queue:   queue,
		dial:    dialAMQP,
		logger:  logger.Named("rabbitmq"),
		failure: failure,
	}
}

func (p *TurnEventPublisher) CanHandle(eventType string) bool {
	for _, t := range turn.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (p *TurnEventPublisher) Handle(event events.DomainEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.publish(ctx, event); err != nil {
		if p.failure != nil {
			p.failure.PublishFailed("rabbitmq")
		}
		p.logger.Errorw("failed to publish turn event",
			"event_type", event.GetEventType(),
			"aggregate_id", event.GetAggregateID(),
			"error", err)
		return err
	}

	p.logger.Debugw("turn event published",
		"event_type", event.GetEventType(),
		"queue", p.queue)
	return nil
}

func (p *TurnEventPublisher) publish(ctx context.Context, event events.DomainEvent) error {
	body, err := json.Marshal(Envelope{
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		OccurredAt:  event.GetOccurredAt(),
		Version:     event.GetVersion(),
		Payload:     event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.GetEventType(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("failed to publish to queue %s: %w", p.queue, err)
	}
	return nil
}

func (p *TurnEventPublisher) channelLocked() (amqpChannel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Infow("connected to broker", "queue", p.queue)
	return ch, nil
}

func (p *TurnEventPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *TurnEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

var _ events.EventHandler = (*TurnEventPublisher)(nil)
