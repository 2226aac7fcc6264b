package fleet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeTrip = "Trip"
)

// Event type constants
const (
	EventTypeTripCreated       = "TripCreated"
	EventTypeTripStatusChanged = "TripStatusChanged"
)

// TripCreatedEvent is published when a trip is booked
type TripCreatedEvent struct {
	shared.BaseDomainEvent
	TripID    uuid.UUID       `json:"trip_id"`
	ClientID  uuid.UUID       `json:"client_id"`
	VehicleID uuid.UUID       `json:"vehicle_id"`
	Date      *time.Time      `json:"date,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewTripCreatedEvent creates a new TripCreatedEvent
func NewTripCreatedEvent(t *Trip) *TripCreatedEvent {
	return &TripCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTripCreated, AggregateTypeTrip, t.ID),
		TripID:          t.ID,
		ClientID:        t.ClientID,
		VehicleID:       t.VehicleID,
		Date:            t.Date,
		Amount:          t.Amount,
	}
}

// TripStatusChangedEvent is published on every lifecycle transition
type TripStatusChangedEvent struct {
	shared.BaseDomainEvent
	TripID uuid.UUID  `json:"trip_id"`
	From   TripStatus `json:"from"`
	To     TripStatus `json:"to"`
}

// NewTripStatusChangedEvent creates a new TripStatusChangedEvent
func NewTripStatusChangedEvent(t *Trip, from TripStatus) *TripStatusChangedEvent {
	return &TripStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTripStatusChanged, AggregateTypeTrip, t.ID),
		TripID:          t.ID,
		From:            from,
		To:              t.Status,
	}
}
