package billing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// PaymentStatus is derived from a document's total and paid amounts.
// It is never set directly by callers.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// IsValid checks if the status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// ResolvePaymentStatus maps (total, paid) to a status:
// PAID when paid covers a positive total, PARTIAL when 0 < paid < total,
// UNPAID otherwise (nothing paid, or a non-positive total).
func ResolvePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	if !total.IsPositive() || !paid.IsPositive() {
		return PaymentStatusUnpaid
	}
	if paid.GreaterThanOrEqual(total) {
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// Overdue describes how late an unpaid document is
type Overdue struct {
	IsOverdue   bool `json:"is_overdue"`
	OverdueDays int  `json:"overdue_days"`
}

// ComputeOverdue reports whether a document is past its due date. Both dates
// are compared as calendar days; paid documents and documents without a due
// date are never overdue.
func ComputeOverdue(dueDate *time.Time, today time.Time, status PaymentStatus) Overdue {
	if dueDate == nil || status == PaymentStatusPaid {
		return Overdue{}
	}
	due := shared.CalendarDate(*dueDate, time.UTC)
	if !today.After(due) {
		return Overdue{}
	}
	days := int(math.Floor(today.Sub(due).Hours() / 24))
	if days <= 0 {
		return Overdue{}
	}
	return Overdue{IsOverdue: true, OverdueDays: days}
}
