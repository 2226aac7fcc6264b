package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// ErrBillExists is returned when an invoice already has a live bill
var ErrBillExists = shared.NewConflictError("bill already exists for invoice")

// Bill is the accounting copy of an invoice, created 1:1 with it.
// Bills are the only documents that are soft-deleted.
type Bill struct {
	shared.BaseAggregateRoot
	BillNumber    string
	InvoiceID     uuid.UUID
	ClientID      uuid.UUID
	VehicleID     *uuid.UUID
	Date          time.Time
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	PendingAmount decimal.Decimal
	PaymentStatus PaymentStatus
	DeletedAt     *time.Time
}

// NewBillFromInvoice copies the invoice totals into a new bill.
// vehicleID is best-effort: the first trip that had a vehicle.
func NewBillFromInvoice(number string, inv *Invoice, vehicleID *uuid.UUID) (*Bill, error) {
	if number == "" {
		return nil, shared.NewValidationError("bill number is required")
	}
	if inv == nil {
		return nil, shared.NewValidationError("invoice is required")
	}

	b := &Bill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BillNumber:        number,
		InvoiceID:         inv.ID,
		ClientID:          inv.ClientID,
		VehicleID:         vehicleID,
		Date:              inv.Date,
		TotalAmount:       inv.TotalAmount,
		PaidAmount:        inv.AmountPaid,
	}
	b.recalculate()

	b.Raise(NewBillCreatedEvent(b))
	return b, nil
}

// SyncFromInvoice copies the invoice's current paid amount onto the bill
func (b *Bill) SyncFromInvoice(inv *Invoice) {
	b.TotalAmount = inv.TotalAmount
	b.PaidAmount = inv.AmountPaid
	b.recalculate()
	b.MarkModified()
}

// SoftDelete hides the bill from listings
func (b *Bill) SoftDelete(now time.Time) error {
	if b.IsDeleted() {
		return shared.NewInvalidStateError("bill is already deleted")
	}
	b.DeletedAt = &now
	b.MarkModified()
	b.Raise(NewBillDeletedEvent(b))
	return nil
}

// Restore brings a soft-deleted bill back, catching up with payments the
// invoice received while the bill was deleted
func (b *Bill) Restore(inv *Invoice) error {
	if !b.IsDeleted() {
		return shared.NewInvalidStateError("bill is not deleted")
	}
	b.DeletedAt = nil
	b.TotalAmount = inv.TotalAmount
	b.PaidAmount = inv.AmountPaid
	b.recalculate()
	b.MarkModified()
	return nil
}

// IsDeleted reports whether the bill is soft-deleted
func (b *Bill) IsDeleted() bool {
	return b.DeletedAt != nil
}

func (b *Bill) recalculate() {
	b.PendingAmount = b.TotalAmount.Sub(b.PaidAmount)
	b.PaymentStatus = ResolvePaymentStatus(b.TotalAmount, b.PaidAmount)
}
