package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/billing"
	"gorm.io/datatypes"
)

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Date           datatypes.Date        `gorm:"not null;index"`
	DueDate        *datatypes.Date       `gorm:"index"`
	TotalAmount    decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	AmountPaid     decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PendingAmount  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus  billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	VehicleNumbers datatypes.JSON        `gorm:"type:jsonb"`
	TripCount      int                   `gorm:"not null;default:0"`
	Notes          string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	var vehicles []string
	if len(m.VehicleNumbers) > 0 {
		// Malformed JSON leaves the list empty; the field is informational.
		_ = json.Unmarshal(m.VehicleNumbers, &vehicles)
	}
	if vehicles == nil {
		vehicles = []string{}
	}

	return &billing.Invoice{
		BaseAggregateRoot: m.toAggregate(),
		InvoiceNumber:     m.InvoiceNumber,
		ClientID:          m.ClientID,
		Date:              dateOf(m.Date),
		DueDate:           datePtrOf(m.DueDate),
		TotalAmount:       m.TotalAmount,
		AmountPaid:        m.AmountPaid,
		PendingAmount:     m.PendingAmount,
		PaymentStatus:     m.PaymentStatus,
		VehicleNumbers:    vehicles,
		TripCount:         m.TripCount,
		Notes:             m.Notes,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	vehicles := inv.VehicleNumbers
	if vehicles == nil {
		vehicles = []string{}
	}
	raw, _ := json.Marshal(vehicles)

	m := &InvoiceModel{
		InvoiceNumber:  inv.InvoiceNumber,
		ClientID:       inv.ClientID,
		Date:           toDate(inv.Date),
		DueDate:        toDatePtr(inv.DueDate),
		TotalAmount:    inv.TotalAmount,
		AmountPaid:     inv.AmountPaid,
		PendingAmount:  inv.PendingAmount,
		PaymentStatus:  inv.PaymentStatus,
		VehicleNumbers: datatypes.JSON(raw),
		TripCount:      inv.TripCount,
		Notes:          inv.Notes,
	}
	m.fromAggregate(inv.BaseAggregateRoot)
	return m
}

// BillModel is the persistence model for the Bill aggregate.
// DeletedAt marks a soft-deleted bill; repositories filter on it explicitly.
type BillModel struct {
	AggregateModel
	BillNumber    string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	InvoiceID     uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_bills_live_invoice,where:deleted_at IS NULL"`
	ClientID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	VehicleID     *uuid.UUID            `gorm:"type:uuid"`
	Date          datatypes.Date        `gorm:"not null"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount    decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PendingAmount decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	DeletedAt     *time.Time            `gorm:"index"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *billing.Bill {
	return &billing.Bill{
		BaseAggregateRoot: m.toAggregate(),
		BillNumber:        m.BillNumber,
		InvoiceID:         m.InvoiceID,
		ClientID:          m.ClientID,
		VehicleID:         m.VehicleID,
		Date:              dateOf(m.Date),
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		PendingAmount:     m.PendingAmount,
		PaymentStatus:     m.PaymentStatus,
		DeletedAt:         m.DeletedAt,
	}
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{
		BillNumber:    b.BillNumber,
		InvoiceID:     b.InvoiceID,
		ClientID:      b.ClientID,
		VehicleID:     b.VehicleID,
		Date:          toDate(b.Date),
		TotalAmount:   b.TotalAmount,
		PaidAmount:    b.PaidAmount,
		PendingAmount: b.PendingAmount,
		PaymentStatus: b.PaymentStatus,
		DeletedAt:     b.DeletedAt,
	}
	m.fromAggregate(b.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate
type PaymentModel struct {
	AggregateModel
	InvoiceID       uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex"`
	BillID          *uuid.UUID            `gorm:"type:uuid;index"`
	ClientID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount      decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceAmount   decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus   billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	LastPaymentDate *time.Time
	LastPaymentMode billing.PaymentMode `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseAggregateRoot: m.toAggregate(),
		InvoiceID:         m.InvoiceID,
		BillID:            m.BillID,
		ClientID:          m.ClientID,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		BalanceAmount:     m.BalanceAmount,
		PaymentStatus:     m.PaymentStatus,
		LastPaymentDate:   m.LastPaymentDate,
		LastPaymentMode:   m.LastPaymentMode,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:       p.InvoiceID,
		BillID:          p.BillID,
		ClientID:        p.ClientID,
		TotalAmount:     p.TotalAmount,
		PaidAmount:      p.PaidAmount,
		BalanceAmount:   p.BalanceAmount,
		PaymentStatus:   p.PaymentStatus,
		LastPaymentDate: p.LastPaymentDate,
		LastPaymentMode: p.LastPaymentMode,
	}
	m.fromAggregate(p.BaseAggregateRoot)
	return m
}

// PaymentTransactionModel is one append-only ledger row
type PaymentTransactionModel struct {
	BaseModel
	PaymentID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Type            billing.TransactionType `gorm:"type:varchar(20);not null"`
	Mode            billing.PaymentMode     `gorm:"type:varchar(30)"`
	ReferenceNo     string                  `gorm:"type:varchar(100)"`
	Remarks         string                  `gorm:"type:text"`
	BalanceBefore   decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	BalanceAfter    decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	TransactionDate time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() billing.PaymentTransaction {
	return billing.PaymentTransaction{
		BaseEntity:      m.toEntity(),
		PaymentID:       m.PaymentID,
		InvoiceID:       m.InvoiceID,
		Amount:          m.Amount,
		Type:            m.Type,
		Mode:            m.Mode,
		ReferenceNo:     m.ReferenceNo,
		Remarks:         m.Remarks,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		TransactionDate: m.TransactionDate,
	}
}

// PaymentTransactionModelFromDomain creates a persistence model from a ledger row
func PaymentTransactionModelFromDomain(t *billing.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{
		PaymentID:       t.PaymentID,
		InvoiceID:       t.InvoiceID,
		Amount:          t.Amount,
		Type:            t.Type,
		Mode:            t.Mode,
		ReferenceNo:     t.ReferenceNo,
		Remarks:         t.Remarks,
		BalanceBefore:   t.BalanceBefore,
		BalanceAfter:    t.BalanceAfter,
		TransactionDate: t.TransactionDate,
	}
	m.fromEntity(t.BaseEntity)
	return m
}

// DocumentSequenceModel holds the last number issued under a prefix
type DocumentSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(20);primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}

// TripLineRow is the scan target of the trip, vehicle and driver join used for invoicing
type TripLineRow struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	Date          *datatypes.Date
	VehicleID     *uuid.UUID
	VehicleNumber *string
	DriverName    *string
	Source        *string
	Destination   *string
	Amount        decimal.NullDecimal
	AmountPaid    decimal.NullDecimal
	InvoiceID     *uuid.UUID
}

// ToDomain converts the row to a billing TripLine
func (r *TripLineRow) ToDomain() billing.TripLine {
	return billing.TripLine{
		TripID:        r.ID,
		ClientID:      r.ClientID,
		Date:          datePtrOf(r.Date),
		VehicleID:     r.VehicleID,
		VehicleNumber: deref(r.VehicleNumber),
		DriverName:    deref(r.DriverName),
		Source:        deref(r.Source),
		Destination:   deref(r.Destination),
		Amount:        r.Amount,
		AmountPaid:    r.AmountPaid,
		InvoiceID:     r.InvoiceID,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
