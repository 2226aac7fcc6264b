package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Validation messages for invoice creation, in the order they are checked
const (
	MsgClientIDRequired = "client id required"
	MsgTripsRequired    = "at least one trip required"
	MsgNoTripsFound     = "no trips found"
	MsgSameClient       = "all trips must belong to same client"
	MsgNoValidDate      = "trips have no valid date"
	MsgSameDate         = "all trips must be on the same date"
)

// TripLine is the billing view of a trip. Amounts are nullable because legacy
// rows may lack them; a missing amount counts as zero.
type TripLine struct {
	TripID        uuid.UUID
	ClientID      uuid.UUID
	Date          *time.Time
	VehicleID     *uuid.UUID
	VehicleNumber string
	DriverName    string
	Source        string
	Destination   string
	Amount        decimal.NullDecimal
	AmountPaid    decimal.NullDecimal
	InvoiceID     *uuid.UUID
}

// TripTotals is the result of aggregating a trip set
type TripTotals struct {
	TotalAmount  decimal.Decimal
	TotalPaid    decimal.Decimal
	TotalPending decimal.Decimal
	// VehicleNumbers is the sorted, de-duplicated set of registration numbers.
	// It is informational only and never used in billing math.
	VehicleNumbers []string
}

// AggregateTrips sums billable and paid amounts across trips.
// TotalPending is always TotalAmount - TotalPaid.
func AggregateTrips(lines []TripLine) TripTotals {
	total := decimal.Zero
	paid := decimal.Zero
	seen := make(map[string]struct{})
	vehicles := make([]string, 0)

	for _, l := range lines {
		total = total.Add(coerce(l.Amount))
		paid = paid.Add(coerce(l.AmountPaid))
		if l.VehicleNumber == "" {
			continue
		}
		if _, ok := seen[l.VehicleNumber]; ok {
			continue
		}
		seen[l.VehicleNumber] = struct{}{}
		vehicles = append(vehicles, l.VehicleNumber)
	}
	sort.Strings(vehicles)

	return TripTotals{
		TotalAmount:    total,
		TotalPaid:      paid,
		TotalPending:   total.Sub(paid),
		VehicleNumbers: vehicles,
	}
}

// ValidateTripSet checks that the loaded trips can share one invoice and
// returns their common calendar date. requested is the number of trip ids the
// caller asked for.
func ValidateTripSet(clientID uuid.UUID, requested int, lines []TripLine) (time.Time, error) {
	if len(lines) == 0 || len(lines) < requested {
		return time.Time{}, shared.NewNotFoundError(MsgNoTripsFound)
	}

	for _, l := range lines {
		if l.ClientID != clientID {
			return time.Time{}, shared.NewValidationError(MsgSameClient)
		}
	}

	for _, l := range lines {
		if l.Date == nil || l.Date.IsZero() {
			return time.Time{}, shared.NewValidationError(MsgNoValidDate)
		}
	}

	date := shared.CalendarDate(*lines[0].Date, time.UTC)
	for _, l := range lines[1:] {
		if !shared.SameCalendarDate(date, *l.Date) {
			return time.Time{}, shared.NewValidationError(MsgSameDate)
		}
	}

	for _, l := range lines {
		if l.InvoiceID != nil {
			return time.Time{}, shared.NewConflictError("invoice already exists for selected trips")
		}
	}

	return date, nil
}

// FirstVehicleID returns the vehicle of the first trip that has one
func FirstVehicleID(lines []TripLine) *uuid.UUID {
	for _, l := range lines {
		if l.VehicleID != nil && *l.VehicleID != uuid.Nil {
			id := *l.VehicleID
			return &id
		}
	}
	return nil
}

func coerce(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// ParseAmount converts free-form numeric text into an amount. Empty or
// non-numeric input yields zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
