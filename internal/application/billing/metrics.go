package billing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/billing"
)

// Metrics receives business counters from the billing services
type Metrics interface {
	InvoiceCreated(ctx context.Context, total decimal.Decimal, tripCount int)
	PaymentRecorded(ctx context.Context, amount decimal.Decimal, mode billing.PaymentMode, status billing.PaymentStatus)
	NumberFallback(ctx context.Context, kind billing.DocumentKind)
}

type noopMetrics struct{}

func (noopMetrics) InvoiceCreated(context.Context, decimal.Decimal, int) {}

func (noopMetrics) PaymentRecorded(context.Context, decimal.Decimal, billing.PaymentMode, billing.PaymentStatus) {}

func (noopMetrics) NumberFallback(context.Context, billing.DocumentKind) {}
