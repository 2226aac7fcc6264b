package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// Payment validation messages
const (
	MsgPaymentAmountPositive = "payment amount must be greater than zero"
	MsgPaymentExceedsBalance = "payment amount exceeds outstanding balance"
	MsgPaymentAmountCents    = "payment amount must have at most 2 decimal places"
)

// PaymentMode is how money was received
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeBankTransfer PaymentMode = "Bank Transfer"
	PaymentModeCheque       PaymentMode = "Cheque"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCard         PaymentMode = "Card"
	PaymentModeOther        PaymentMode = "Other"
)

// PaymentModes lists every accepted mode
var PaymentModes = []PaymentMode{
	PaymentModeCash, PaymentModeBankTransfer, PaymentModeCheque,
	PaymentModeUPI, PaymentModeCard, PaymentModeOther,
}

// IsValid checks if the mode is known
func (m PaymentMode) IsValid() bool {
	for _, known := range PaymentModes {
		if m == known {
			return true
		}
	}
	return false
}

// ParsePaymentMode matches a mode case-insensitively
func ParsePaymentMode(s string) (PaymentMode, error) {
	s = strings.TrimSpace(s)
	for _, known := range PaymentModes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", shared.NewValidationError("invalid payment mode")
}

// Payment is the current balance snapshot for one invoice.
// Every change to PaidAmount is mirrored by exactly one PaymentTransaction.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID       uuid.UUID
	BillID          *uuid.UUID
	ClientID        uuid.UUID
	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	BalanceAmount   decimal.Decimal
	PaymentStatus   PaymentStatus
	LastPaymentDate *time.Time
	LastPaymentMode PaymentMode
}

// NewPaymentForInvoice opens the balance record for a freshly created invoice.
// When the invoice already carries a paid amount (trips paid up front), an
// "initial" transaction is returned so the ledger sums to PaidAmount.
func NewPaymentForInvoice(inv *Invoice, billID *uuid.UUID, now time.Time) (*Payment, *PaymentTransaction) {
	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         inv.ID,
		BillID:            billID,
		ClientID:          inv.ClientID,
		TotalAmount:       inv.TotalAmount,
		PaidAmount:        inv.AmountPaid,
	}
	p.recalculate()

	if !inv.AmountPaid.IsPositive() {
		return p, nil
	}
	txn := newTransaction(p, inv.AmountPaid, TransactionTypeInitial, PaymentModeOther, "", "paid on trips before invoicing", inv.TotalAmount, now)
	p.LastPaymentDate = &txn.TransactionDate
	return p, txn
}

// PaymentEntry describes one partial payment
type PaymentEntry struct {
	Amount      decimal.Decimal
	Mode        PaymentMode
	ReferenceNo string
	Remarks     string
}

// RecordPayment applies a partial payment and returns the ledger row that
// captures the balance before and after it. The payment is rejected when the
// amount is not positive, has fractions of a cent, or exceeds the outstanding balance.
func (p *Payment) RecordPayment(entry PaymentEntry, now time.Time) (*PaymentTransaction, error) {
	if !entry.Amount.IsPositive() {
		return nil, shared.NewValidationError(MsgPaymentAmountPositive)
	}
	if !entry.Amount.Equal(entry.Amount.Round(2)) {
		return nil, shared.NewValidationError(MsgPaymentAmountCents)
	}
	if !entry.Mode.IsValid() {
		return nil, shared.NewValidationError("invalid payment mode")
	}
	if entry.Amount.GreaterThan(p.BalanceAmount) {
		return nil, shared.NewValidationError(MsgPaymentExceedsBalance)
	}

	balanceBefore := p.BalanceAmount
	p.PaidAmount = p.PaidAmount.Add(entry.Amount)
	p.recalculate()
	p.LastPaymentDate = &now
	p.LastPaymentMode = entry.Mode
	p.MarkModified()

	txn := newTransaction(p, entry.Amount, TransactionTypePayment, entry.Mode,
		strings.TrimSpace(entry.ReferenceNo), strings.TrimSpace(entry.Remarks), balanceBefore, now)

	p.Raise(NewPaymentRecordedEvent(p, txn))
	return txn, nil
}

// AttachBill points the payment at a replacement bill
func (p *Payment) AttachBill(billID uuid.UUID) {
	p.BillID = &billID
	p.MarkModified()
}

// IsSettled reports whether nothing is outstanding
func (p *Payment) IsSettled() bool {
	return p.PaymentStatus == PaymentStatusPaid
}

func (p *Payment) recalculate() {
	p.BalanceAmount = p.TotalAmount.Sub(p.PaidAmount)
	p.PaymentStatus = ResolvePaymentStatus(p.TotalAmount, p.PaidAmount)
}
