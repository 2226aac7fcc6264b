package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceivablesProvider aggregates the invoices table
type GormReceivablesProvider struct {
	db *gorm.DB
}

// NewGormReceivablesProvider creates a provider on db
func NewGormReceivablesProvider(db *gorm.DB) *GormReceivablesProvider {
	return &GormReceivablesProvider{db: db}
}

// Receivables sums pending amounts and counts invoices that are not PAID and
// whose due date is before today
func (p *GormReceivablesProvider) Receivables(ctx context.Context, today time.Time) (ReceivablesSnapshot, error) {
	var row struct {
		Outstanding decimal.NullDecimal
		Overdue     int64
	}
	err := p.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select(
			"COALESCE(SUM(pending_amount), 0) AS outstanding, "+
				"COALESCE(SUM(CASE WHEN due_date IS NOT NULL AND due_date < ? AND payment_status <> ? THEN 1 ELSE 0 END), 0) AS overdue",
			models.DateValue(today), billing.PaymentStatusPaid,
		).
		Scan(&row).Error
	if err != nil {
		return ReceivablesSnapshot{}, fmt.Errorf("receivables: %w", err)
	}

	out := decimal.Zero
	if row.Outstanding.Valid {
		out = row.Outstanding.Decimal
	}
	return ReceivablesSnapshot{Outstanding: out, OverdueCount: row.Overdue}, nil
}

var _ ReceivablesProvider = (*GormReceivablesProvider)(nil)
