package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// TransactionType tags a ledger row
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeInitial    TransactionType = "initial"
)

// IsValid checks if the type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePayment, TransactionTypeRefund, TransactionTypeAdjustment, TransactionTypeInitial:
		return true
	}
	return false
}

// PaymentTransaction is an append-only ledger row. Rows are never updated or deleted.
type PaymentTransaction struct {
	shared.BaseEntity
	PaymentID       uuid.UUID
	InvoiceID       uuid.UUID
	Amount          decimal.Decimal
	Type            TransactionType
	Mode            PaymentMode
	ReferenceNo     string
	Remarks         string
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	TransactionDate time.Time
}

func newTransaction(p *Payment, amount decimal.Decimal, typ TransactionType, mode PaymentMode, ref, remarks string, before decimal.Decimal, at time.Time) *PaymentTransaction {
	return &PaymentTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          amount,
		Type:            typ,
		Mode:            mode,
		ReferenceNo:     ref,
		Remarks:         remarks,
		BalanceBefore:   before,
		BalanceAfter:    p.BalanceAmount,
		TransactionDate: at,
	}
}

// LedgerTotal sums the amounts of a payment's transactions
func LedgerTotal(txns []PaymentTransaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.Amount)
	}
	return sum
}
