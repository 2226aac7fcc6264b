package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypeBill    = "Bill"
	AggregateTypePayment = "Payment"
)

// Event type constants
const (
	EventTypeInvoiceCreated  = "InvoiceCreated"
	EventTypeBillCreated     = "BillCreated"
	EventTypeBillDeleted     = "BillDeleted"
	EventTypePaymentRecorded = "PaymentRecorded"
)

// InvoiceCreatedEvent is published when trips are invoiced
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	Date          time.Time       `json:"date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TripCount     int             `json:"trip_count"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		Date:            inv.Date,
		TotalAmount:     inv.TotalAmount,
		TripCount:       inv.TripCount,
	}
}

// BillCreatedEvent is published alongside InvoiceCreatedEvent
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID `json:"bill_id"`
	BillNumber string    `json:"bill_number"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, AggregateTypeBill, b.ID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		InvoiceID:       b.InvoiceID,
	}
}

// BillDeletedEvent is published when a bill is soft-deleted
type BillDeletedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID `json:"bill_id"`
	BillNumber string    `json:"bill_number"`
}

// NewBillDeletedEvent creates a new BillDeletedEvent
func NewBillDeletedEvent(b *Bill) *BillDeletedEvent {
	return &BillDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillDeleted, AggregateTypeBill, b.ID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
	}
}

// PaymentRecordedEvent is published for every partial payment
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          PaymentMode     `json:"mode"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        PaymentStatus   `json:"status"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment, txn *PaymentTransaction) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		TransactionID:   txn.ID,
		Amount:          txn.Amount,
		Mode:            txn.Mode,
		BalanceAfter:    txn.BalanceAfter,
		Status:          p.PaymentStatus,
	}
}
