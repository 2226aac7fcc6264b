package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Invoice is the billing document for one client's same-date trips.
// Its date always comes from the trips, never from the caller.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber  string
	ClientID       uuid.UUID
	Date           time.Time
	DueDate        *time.Time
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	PendingAmount  decimal.Decimal
	PaymentStatus  PaymentStatus
	VehicleNumbers []string
	TripCount      int
	Notes          string
}

// NewInvoice creates an invoice from aggregated trip totals.
// dueDays <= 0 leaves the invoice without a due date.
func NewInvoice(number string, clientID uuid.UUID, date time.Time, totals TripTotals, tripCount, dueDays int) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewValidationError("invoice number is required")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError(MsgClientIDRequired)
	}
	if date.IsZero() {
		return nil, shared.NewValidationError(MsgNoValidDate)
	}
	if totals.TotalPaid.IsNegative() || totals.TotalPaid.GreaterThan(totals.TotalAmount) {
		return nil, shared.NewValidationError("amount paid cannot exceed the invoice total")
	}

	day := shared.CalendarDate(date, time.UTC)
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     number,
		ClientID:          clientID,
		Date:              day,
		TotalAmount:       totals.TotalAmount,
		AmountPaid:        totals.TotalPaid,
		VehicleNumbers:    totals.VehicleNumbers,
		TripCount:         tripCount,
	}
	if dueDays > 0 {
		due := day.AddDate(0, 0, dueDays)
		inv.DueDate = &due
	}
	inv.recalculate()

	inv.Raise(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// ApplyPayment adds a settled amount to the invoice
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError(MsgPaymentAmountPositive)
	}
	if amount.GreaterThan(i.PendingAmount) {
		return shared.NewValidationError(MsgPaymentExceedsBalance)
	}
	i.AmountPaid = i.AmountPaid.Add(amount)
	i.recalculate()
	i.MarkModified()
	return nil
}

// Overdue reports lateness as of the given calendar day
func (i *Invoice) Overdue(today time.Time) Overdue {
	return ComputeOverdue(i.DueDate, today, i.PaymentStatus)
}

// recalculate derives pending amount and status from total and paid
func (i *Invoice) recalculate() {
	i.PendingAmount = i.TotalAmount.Sub(i.AmountPaid)
	i.PaymentStatus = ResolvePaymentStatus(i.TotalAmount, i.AmountPaid)
}
