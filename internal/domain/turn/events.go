package turn

import (
	"time"

	"github.com/taketurn/taketurn/internal/domain/shared/events"
)

const (
	EventTypeTurnCreated  = "turn.created"
	EventTypeTurnReserved = "turn.reserved"
	EventTypeTurnAssigned = "turn.assigned"
	EventTypeTurnsReset   = "turn.reset"
)

// EventTypes lists every turn event, in lifecycle order.
var EventTypes = []string{
	EventTypeTurnCreated,
	EventTypeTurnReserved,
	EventTypeTurnAssigned,
	EventTypeTurnsReset,
}

type TurnCreatedEvent struct {
	events.BaseEvent
	Number int64 `json:"number"`
}

func NewTurnCreatedEvent(t *Turn) TurnCreatedEvent {
	return TurnCreatedEvent{
		BaseEvent: newBase(t.ID(), EventTypeTurnCreated),
		Number:    t.Number(),
	}
}

type TurnReservedEvent struct {
	events.BaseEvent
	Number int64 `json:"number"`
}

func NewTurnReservedEvent(t *Turn) TurnReservedEvent {
	return TurnReservedEvent{
		BaseEvent: newBase(t.ID(), EventTypeTurnReserved),
		Number:    t.Number(),
	}
}

type TurnAssignedEvent struct {
	events.BaseEvent
	Number int64  `json:"number"`
	Holder string `json:"holder"`
}

func NewTurnAssignedEvent(t *Turn) TurnAssignedEvent {
	return TurnAssignedEvent{
		BaseEvent: newBase(t.ID(), EventTypeTurnAssigned),
		Number:    t.Number(),
		Holder:    t.Holder(),
	}
}

// TurnsResetEvent carries the id of the first turn issued after the reset.
type TurnsResetEvent struct {
	events.BaseEvent
}

func NewTurnsResetEvent(nextID string) TurnsResetEvent {
	return TurnsResetEvent{BaseEvent: newBase(nextID, EventTypeTurnsReset)}
}

func newBase(aggregateID, eventType string) events.BaseEvent {
	return events.BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		Version:     1,
	}
}
