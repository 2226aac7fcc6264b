package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate and written to the outbox in
// the transaction that changed it
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// AggregateRef names the record an event is about
type AggregateRef struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// BaseDomainEvent is embedded by every concrete event. Its JSON form is the
// envelope of outbox payloads and Kafka messages.
type BaseDomainEvent struct {
	ID      uuid.UUID    `json:"event_id"`
	Type    string       `json:"event_type"`
	At      time.Time    `json:"occurred_at"`
	Subject AggregateRef `json:"aggregate"`
}

// NewBaseDomainEvent stamps a new event about the given aggregate
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:      uuid.New(),
		Type:    eventType,
		At:      time.Now().UTC(),
		Subject: AggregateRef{Type: aggType, ID: aggID},
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }
func (e *BaseDomainEvent) EventType() string { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Subject.ID }
func (e *BaseDomainEvent) AggregateType() string { return e.Subject.Type }

// EventHandler reacts to published events. An empty EventTypes means every
// event is delivered.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher hands events to subscribers once their outbox row is claimed
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the in-process fan-out behind the outbox processor
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events inside the caller's transaction.
// tx is the *gorm.DB of that transaction.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
