package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps of every stored record
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID and stamps both timestamps
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised
// since the aggregate was loaded.
//
// Version is the value the row will hold after the next save. The first
// MarkModified after a load bumps it once; further changes before the save
// leave it alone, so StoredVersion always names the row as it was read.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	modified bool
	pending  []DomainEvent
}

// NewBaseAggregateRoot starts a not-yet-stored aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// MarkModified records a state change
func (a *BaseAggregateRoot) MarkModified() {
	a.UpdatedAt = time.Now().UTC()
	if !a.modified {
		a.Version++
		a.modified = true
	}
}

// StoredVersion is the version a conditional update must match
func (a *BaseAggregateRoot) StoredVersion() int {
	if a.modified {
		return a.Version - 1
	}
	return a.Version
}

// MarkSaved is called by repositories once a conditional update succeeded
func (a *BaseAggregateRoot) MarkSaved() {
	a.modified = false
}

// Raise queues an event for the outbox
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the events raised since the last ClearEvents
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// ClearEvents drops queued events once they are written to the outbox
func (a *BaseAggregateRoot) ClearEvents() {
	a.pending = nil
}
