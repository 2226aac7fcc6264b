package fleet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// TripStatus represents the lifecycle state of a trip
type TripStatus string

const (
	TripStatusPending   TripStatus = "Pending"
	TripStatusRunning   TripStatus = "Running"
	TripStatusCompleted TripStatus = "Completed"
	TripStatusCancelled TripStatus = "Cancelled"
)

// IsValid checks if the status is known
func (s TripStatus) IsValid() bool {
	switch s {
	case TripStatusPending, TripStatusRunning, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// CanTransitionTo reports whether the status may move to next
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	switch s {
	case TripStatusPending:
		return next == TripStatusRunning || next == TripStatusCancelled
	case TripStatusRunning:
		return next == TripStatusCompleted || next == TripStatusCancelled
	}
	return false
}

// ErrTripInvoiced is returned by every mutation attempted on an invoiced trip
var ErrTripInvoiced = shared.NewInvalidStateError("trip is invoiced")

// TripDetails groups the editable fields of a trip
type TripDetails struct {
	ClientID    uuid.UUID
	DriverID    uuid.UUID
	VehicleID   uuid.UUID
	Date        *time.Time
	Source      string
	Destination string
	Material    string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	AmountPaid  decimal.Decimal
	Notes       string
}

// Trip is a single haulage job billed by quantity × rate.
// Once InvoiceID is set the trip is locked: no edits, status changes or deletion.
type Trip struct {
	shared.BaseAggregateRoot
	TripDetails
	Amount        decimal.Decimal
	PendingAmount decimal.Decimal
	Status        TripStatus
	InvoiceID     *uuid.UUID
}

// NewTrip creates a pending trip
func NewTrip(details TripDetails) (*Trip, error) {
	t := &Trip{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            TripStatusPending,
	}
	if err := t.apply(details); err != nil {
		return nil, err
	}
	t.Raise(NewTripCreatedEvent(t))
	return t, nil
}

// Update replaces the trip's editable fields and recomputes its amounts
func (t *Trip) Update(details TripDetails) error {
	if err := t.EnsureMutable(); err != nil {
		return err
	}
	if err := t.apply(details); err != nil {
		return err
	}
	t.MarkModified()
	return nil
}

// ChangeStatus moves the trip through its lifecycle
func (t *Trip) ChangeStatus(next TripStatus) error {
	if err := t.EnsureMutable(); err != nil {
		return err
	}
	if !next.IsValid() {
		return shared.NewValidationError("invalid trip status")
	}
	if t.Status == next {
		return nil
	}
	if !t.Status.CanTransitionTo(next) {
		return shared.NewInvalidStateError("cannot change trip status from " + string(t.Status) + " to " + string(next))
	}

	from := t.Status
	t.Status = next
	t.MarkModified()
	t.Raise(NewTripStatusChangedEvent(t, from))
	return nil
}

// EnsureDeletable rejects deletion of invoiced trips
func (t *Trip) EnsureDeletable() error {
	return t.EnsureMutable()
}

// EnsureMutable returns ErrTripInvoiced once the trip belongs to an invoice
func (t *Trip) EnsureMutable() error {
	if t.IsInvoiced() {
		return ErrTripInvoiced
	}
	return nil
}

// IsInvoiced reports whether the trip is linked to an invoice
func (t *Trip) IsInvoiced() bool {
	return t.InvoiceID != nil
}

// AssignInvoice links the trip to an invoice, locking it
func (t *Trip) AssignInvoice(invoiceID uuid.UUID) error {
	if t.IsInvoiced() {
		return shared.NewConflictError("trip already invoiced")
	}
	t.InvoiceID = &invoiceID
	t.MarkModified()
	return nil
}

func (t *Trip) apply(d TripDetails) error {
	if d.ClientID == uuid.Nil {
		return shared.NewValidationError("client id required")
	}
	if d.DriverID == uuid.Nil {
		return shared.NewValidationError("driver id required")
	}
	if d.VehicleID == uuid.Nil {
		return shared.NewValidationError("vehicle id required")
	}
	if d.Quantity.IsNegative() {
		return shared.NewValidationError("quantity cannot be negative")
	}
	if d.Rate.IsNegative() {
		return shared.NewValidationError("rate cannot be negative")
	}

	amount := d.Quantity.Mul(d.Rate).Round(2)
	if d.AmountPaid.IsNegative() || d.AmountPaid.GreaterThan(amount) {
		return shared.NewValidationError("amount paid must be between 0 and the trip amount")
	}

	d.Source = strings.TrimSpace(d.Source)
	d.Destination = strings.TrimSpace(d.Destination)
	d.Material = strings.TrimSpace(d.Material)
	if d.Date != nil {
		day := shared.CalendarDate(*d.Date, time.UTC)
		d.Date = &day
	}

	t.TripDetails = d
	t.Amount = amount
	t.PendingAmount = amount.Sub(d.AmountPaid)
	return nil
}
