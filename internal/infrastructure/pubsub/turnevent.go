package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/shared/goroutine"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// DefaultTurnEventChannel carries turn changes between service instances.
const DefaultTurnEventChannel = "taketurn:turn_events"

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// TurnEvent is the message published for every local turn change.
type TurnEvent struct {
	Type       string `json:"type"`
	TurnID     string `json:"turn_id"`
	Number     int64  `json:"number"`
	Timestamp  int64  `json:"timestamp"`
	InstanceID string `json:"instance_id,omitempty"` // Source instance ID to avoid self-delivery
}

// RedisTurnRelay publishes turn changes to Redis and delivers changes made
// by other instances.
type RedisTurnRelay struct {
	client     *redis.Client
	channel    string
	logger     logger.Interface
	instanceID string
}

func NewRedisTurnRelay(client *redis.Client, channel string, logger logger.Interface) *RedisTurnRelay {
	if channel == "" {
		channel = DefaultTurnEventChannel
	}
	return &RedisTurnRelay{
		client:     client,
		channel:    channel,
		logger:     logger.Named("turn-relay"),
		instanceID: uuid.NewString(),
	}
}

func (r *RedisTurnRelay) InstanceID() string {
	return r.instanceID
}

// PublishTurnChanged publishes change tagged with this instance's id.
func (r *RedisTurnRelay) PublishTurnChanged(ctx context.Context, change dto.TurnChange) error {
	event := TurnEvent{
		Type:       change.Type,
		TurnID:     change.TurnID,
		Number:     change.Number,
		Timestamp:  time.Now().UTC().Unix(),
		InstanceID: r.instanceID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Errorw("failed to publish turn event",
			"type", event.Type,
			"turn_id", event.TurnID,
			"error", err,
		)
		return fmt.Errorf("failed to publish turn event: %w", err)
	}

	r.logger.Debugw("turn event published to Redis",
		"type", event.Type,
		"turn_id", event.TurnID,
	)
	return nil
}

// Subscribe blocks until ctx is done, calling handler for every event
// another instance publishes. Dropped subscriptions are re-established with
// exponential backoff.
func (r *RedisTurnRelay) Subscribe(ctx context.Context, handler func(event TurnEvent)) error {
	backoff := initialBackoff

	for {
		err := r.subscribe(ctx, func(payload string) {
			var event TurnEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				r.logger.Warnw("failed to unmarshal turn event",
					"payload", payload,
					"error", err,
				)
				return
			}

			if event.InstanceID == r.instanceID {
				return
			}

			handler(event)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logger.Warnw("turn event subscription disconnected, reconnecting",
			"channel", r.channel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (r *RedisTurnRelay) subscribe(ctx context.Context, handler func(payload string)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", r.channel, err)
	}

	r.logger.Infow("subscribed to turn event channel", "channel", r.channel)

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			r.logger.Infow("turn event subscriber stopped",
				"channel", r.channel,
				"reason", ctx.Err(),
			)
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				r.logger.Warnw("turn event channel closed", "channel", r.channel)
				return nil
			}

			goroutine.SafeGo(r.logger, "turn-event-handler", func() {
				handler(msg.Payload)
			})
		}
	}
}
