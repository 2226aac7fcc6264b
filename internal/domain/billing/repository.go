package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	shared.Filter
	ClientID      *uuid.UUID
	PaymentStatus PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	// OverdueAsOf keeps only unpaid invoices whose due date is before this day
	OverdueAsOf *time.Time
}

// BillFilter narrows bill listings
type BillFilter struct {
	shared.Filter
	ClientID       *uuid.UUID
	PaymentStatus  PaymentStatus
	IncludeDeleted bool
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads the invoice and row-locks it until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates with an optimistic version check
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	// NumbersWithPrefix returns every invoice number issued under prefix
	NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// BillRepository defines the interface for bill persistence.
// Finders skip soft-deleted bills unless stated otherwise.
type BillRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// FindByIDIncludingDeleted also returns soft-deleted bills
	FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*Bill, error)
	FindByInvoiceForUpdate(ctx context.Context, invoiceID uuid.UUID) (*Bill, error)
	ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error)
	FindAll(ctx context.Context, filter BillFilter) ([]Bill, error)
	Count(ctx context.Context, filter BillFilter) (int64, error)
	Save(ctx context.Context, bill *Bill) error
	SaveWithLock(ctx context.Context, bill *Bill) error
	// NumbersWithPrefix includes soft-deleted bills so their numbers are never reissued
	NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate loads the payment and row-locks it until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// PaymentTransactionRepository is append-only
type PaymentTransactionRepository interface {
	Append(ctx context.Context, txn *PaymentTransaction) error
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentTransaction, error)
}

// SequenceRepository hands out document sequence values
type SequenceRepository interface {
	// Reserve locks the counter for prefix and returns max(counter, floor)+1,
	// storing it as the new counter value.
	Reserve(ctx context.Context, prefix string, floor int64) (int64, error)
	// Current returns the last reserved value without locking
	Current(ctx context.Context, prefix string) (int64, error)
}

// TripLineReader loads the billing view of trips
type TripLineReader interface {
	// LinesForUpdate returns the requested trips with their vehicle and driver
	// names, row-locking the trips until the transaction ends. Unknown IDs are
	// silently skipped.
	LinesForUpdate(ctx context.Context, tripIDs []uuid.UUID) ([]TripLine, error)
	LinesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]TripLine, error)
}

// TripLinker points trips at the invoice that bills them
type TripLinker interface {
	// AssignInvoice links every listed trip that has no invoice yet and
	// returns how many were linked.
	AssignInvoice(ctx context.Context, tripIDs []uuid.UUID, invoiceID uuid.UUID) (int64, error)
}
