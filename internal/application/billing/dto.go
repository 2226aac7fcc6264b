package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// =============================================================================
// Invoice DTOs
// =============================================================================

// CreateInvoiceRequest selects the trips to bill. ClientID and TripIDs are
// validated by the service so the rejection messages stay stable.
type CreateInvoiceRequest struct {
	ClientID uuid.UUID   `json:"client_id"`
	TripIDs  []uuid.UUID `json:"trip_ids"`
	// Date is a filter hint from the trip picker. The invoice date always
	// comes from the trips.
	Date  *string `json:"date"`
	Notes string  `json:"notes" binding:"max=1000"`
}

// InvoiceListFilter represents filter options for invoice list
type InvoiceListFilter struct {
	Search        string `form:"search"`
	ClientID      string `form:"client_id" binding:"omitempty,uuid"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=UNPAID PARTIAL PAID"`
	DateFrom      string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo        string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	Overdue       bool   `form:"overdue"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceNumber  string          `json:"invoice_number"`
	ClientID       uuid.UUID       `json:"client_id"`
	Date           string          `json:"date"`
	DueDate        *string         `json:"due_date,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	PaymentStatus  string          `json:"payment_status"`
	IsOverdue      bool            `json:"is_overdue"`
	OverdueDays    int             `json:"overdue_days"`
	VehicleNumbers []string        `json:"vehicle_numbers"`
	TripCount      int             `json:"trip_count"`
	Notes          string          `json:"notes,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToInvoiceResponse converts an invoice, computing lateness as of today
func ToInvoiceResponse(inv *billing.Invoice, today time.Time) InvoiceResponse {
	overdue := inv.Overdue(today)
	vehicles := inv.VehicleNumbers
	if vehicles == nil {
		vehicles = []string{}
	}
	return InvoiceResponse{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		ClientID:       inv.ClientID,
		Date:           inv.Date.Format(shared.DateLayout),
		DueDate:        formatDate(inv.DueDate),
		TotalAmount:    inv.TotalAmount,
		AmountPaid:     inv.AmountPaid,
		PendingAmount:  inv.PendingAmount,
		PaymentStatus:  string(inv.PaymentStatus),
		IsOverdue:      overdue.IsOverdue,
		OverdueDays:    overdue.OverdueDays,
		VehicleNumbers: vehicles,
		TripCount:      inv.TripCount,
		Notes:          inv.Notes,
		Version:        inv.Version,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

// TripLineResponse is the flattened trip summary returned with an invoice
type TripLineResponse struct {
	TripID        uuid.UUID       `json:"trip_id"`
	Date          *string         `json:"date"`
	VehicleNumber string          `json:"vehicle_number,omitempty"`
	DriverName    string          `json:"driver_name,omitempty"`
	Source        string          `json:"source,omitempty"`
	Destination   string          `json:"destination,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

// ToTripLineResponses flattens trip lines; missing amounts are reported as zero
func ToTripLineResponses(lines []billing.TripLine) []TripLineResponse {
	out := make([]TripLineResponse, len(lines))
	for i, l := range lines {
		totals := billing.AggregateTrips([]billing.TripLine{l})
		out[i] = TripLineResponse{
			TripID:        l.TripID,
			Date:          formatDate(l.Date),
			VehicleNumber: l.VehicleNumber,
			DriverName:    l.DriverName,
			Source:        l.Source,
			Destination:   l.Destination,
			Amount:        totals.TotalAmount,
			AmountPaid:    totals.TotalPaid,
			PendingAmount: totals.TotalPending,
		}
	}
	return out
}

// InvoiceCreatedResponse is returned by invoice creation
type InvoiceCreatedResponse struct {
	Invoice InvoiceResponse    `json:"invoice"`
	Bill    BillResponse       `json:"bill"`
	Payment PaymentResponse    `json:"payment"`
	Trips   []TripLineResponse `json:"trips"`
}

// =============================================================================
// Bill DTOs
// =============================================================================

// BillListFilter represents filter options for bill list
type BillListFilter struct {
	Search         string `form:"search"`
	ClientID       string `form:"client_id" binding:"omitempty,uuid"`
	PaymentStatus  string `form:"payment_status" binding:"omitempty,oneof=UNPAID PARTIAL PAID"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BillResponse represents a bill in API responses
type BillResponse struct {
	ID            uuid.UUID       `json:"id"`
	BillNumber    string          `json:"bill_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	VehicleID     *uuid.UUID      `json:"vehicle_id,omitempty"`
	Date          string          `json:"date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PaymentStatus string          `json:"payment_status"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToBillResponse converts a bill
func ToBillResponse(b *billing.Bill) BillResponse {
	return BillResponse{
		ID:            b.ID,
		BillNumber:    b.BillNumber,
		InvoiceID:     b.InvoiceID,
		ClientID:      b.ClientID,
		VehicleID:     b.VehicleID,
		Date:          b.Date.Format(shared.DateLayout),
		TotalAmount:   b.TotalAmount,
		PaidAmount:    b.PaidAmount,
		PendingAmount: b.PendingAmount,
		PaymentStatus: string(b.PaymentStatus),
		DeletedAt:     b.DeletedAt,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// =============================================================================
// Payment DTOs
// =============================================================================

// RecordPaymentRequest records one partial payment
type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"payment_mode" binding:"required,payment_mode"`
	ReferenceNo string          `json:"reference_no" binding:"max=100"`
	Remarks     string          `json:"remarks" binding:"max=500"`
	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// PaymentResponse represents a payment balance in API responses
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	BillID          *uuid.UUID      `json:"bill_id,omitempty"`
	ClientID        uuid.UUID       `json:"client_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	BalanceAmount   decimal.Decimal `json:"balance_amount"`
	PaymentStatus   string          `json:"payment_status"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty"`
	LastPaymentMode string          `json:"last_payment_mode,omitempty"`
	Version         int             `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToPaymentResponse converts a payment
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		BillID:          p.BillID,
		ClientID:        p.ClientID,
		TotalAmount:     p.TotalAmount,
		PaidAmount:      p.PaidAmount,
		BalanceAmount:   p.BalanceAmount,
		PaymentStatus:   string(p.PaymentStatus),
		LastPaymentDate: p.LastPaymentDate,
		LastPaymentMode: string(p.LastPaymentMode),
		Version:         p.Version,
		UpdatedAt:       p.UpdatedAt,
	}
}

// PaymentTransactionResponse represents one ledger row
type PaymentTransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	PaymentMode     string          `json:"payment_mode"`
	ReferenceNo     string          `json:"reference_no,omitempty"`
	Remarks         string          `json:"remarks,omitempty"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// ToPaymentTransactionResponse converts a ledger row
func ToPaymentTransactionResponse(t *billing.PaymentTransaction) PaymentTransactionResponse {
	return PaymentTransactionResponse{
		ID:              t.ID,
		PaymentID:       t.PaymentID,
		Amount:          t.Amount,
		TransactionType: string(t.Type),
		PaymentMode:     string(t.Mode),
		ReferenceNo:     t.ReferenceNo,
		Remarks:         t.Remarks,
		BalanceBefore:   t.BalanceBefore,
		BalanceAfter:    t.BalanceAfter,
		TransactionDate: t.TransactionDate,
	}
}

// PaymentRecordedResponse is returned by payment recording
type PaymentRecordedResponse struct {
	Payment     PaymentResponse            `json:"payment"`
	Transaction PaymentTransactionResponse `json:"transaction"`
}

// =============================================================================
// Numbering DTOs
// =============================================================================

// NextNumberResponse previews the next document number
type NextNumberResponse struct {
	Kind   string `json:"kind"`
	Prefix string `json:"prefix"`
	Number string `json:"number"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(shared.DateLayout)
	return &s
}
