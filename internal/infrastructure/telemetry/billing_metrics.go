package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/domain/billing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	AttrPaymentMode   = attribute.Key("payment_mode")
	AttrPaymentStatus = attribute.Key("payment_status")
	AttrDocumentKind  = attribute.Key("document_kind")
	AttrLicenseState  = attribute.Key("license_state")
)

// InvoiceTripBuckets bounds the trips-per-invoice histogram
var InvoiceTripBuckets = []float64{1, 2, 5, 10, 20, 50, 100}

// ReceivablesSnapshot is the outstanding position across all invoices
type ReceivablesSnapshot struct {
	Outstanding  decimal.Decimal
	OverdueCount int64
}

// ReceivablesProvider reads the receivables position for the observable gauges
type ReceivablesProvider interface {
	Receivables(ctx context.Context, today time.Time) (ReceivablesSnapshot, error)
}

// BillingMetricsConfig holds configuration for BillingMetrics
type BillingMetricsConfig struct {
	Meter       metric.Meter
	Logger      *zap.Logger
	Receivables ReceivablesProvider
	Now         func() time.Time
}

// BillingMetrics records invoicing, payment and fleet compliance metrics
type BillingMetrics struct {
	logger *zap.Logger

	invoicesCreated metric.Int64Counter
	invoicedAmount  metric.Float64Counter
	invoiceTrips    metric.Float64Histogram
	payments        metric.Int64Counter
	paymentAmount   metric.Float64Counter
	numberFallbacks metric.Int64Counter
	licenses        metric.Int64Gauge
}

// NewBillingMetrics creates every instrument on cfg.Meter. When cfg.Receivables
// is set, outstanding and overdue gauges are observed on each collection.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &BillingMetrics{logger: logger}
	meter := cfg.Meter

	var err error
	if m.invoicesCreated, err = meter.Int64Counter("backoffice_invoices_created_total",
		metric.WithDescription("Invoices created from trips"), metric.WithUnit("{invoices}")); err != nil {
		return nil, err
	}
	if m.invoicedAmount, err = meter.Float64Counter("backoffice_invoiced_amount_total",
		metric.WithDescription("Sum of invoice totals"), metric.WithUnit("{INR}")); err != nil {
		return nil, err
	}
	if m.invoiceTrips, err = meter.Float64Histogram("backoffice_invoice_trips",
		metric.WithDescription("Trips aggregated per invoice"), metric.WithUnit("{trips}"),
		metric.WithExplicitBucketBoundaries(InvoiceTripBuckets...)); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("backoffice_payments_total",
		metric.WithDescription("Partial payments recorded"), metric.WithUnit("{payments}")); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Counter("backoffice_payment_amount_total",
		metric.WithDescription("Sum of recorded payment amounts"), metric.WithUnit("{INR}")); err != nil {
		return nil, err
	}
	if m.numberFallbacks, err = meter.Int64Counter("backoffice_number_fallback_total",
		metric.WithDescription("Document numbers issued from the time-based fallback"), metric.WithUnit("{numbers}")); err != nil {
		return nil, err
	}
	if m.licenses, err = meter.Int64Gauge("backoffice_driver_licenses",
		metric.WithDescription("Active drivers with expired or soon-expiring licenses at the last scan"), metric.WithUnit("{drivers}")); err != nil {
		return nil, err
	}

	if cfg.Receivables != nil {
		if err := m.observeReceivables(meter, cfg.Receivables, cfg.Now); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BillingMetrics) observeReceivables(meter metric.Meter, provider ReceivablesProvider, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	outstanding, err := meter.Float64ObservableGauge("backoffice_receivables_outstanding",
		metric.WithDescription("Pending amount across all invoices"), metric.WithUnit("{INR}"))
	if err != nil {
		return err
	}
	overdue, err := meter.Int64ObservableGauge("backoffice_invoices_overdue",
		metric.WithDescription("Unpaid invoices past their due date"), metric.WithUnit("{invoices}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		snap, err := provider.Receivables(ctx, now())
		if err != nil {
			m.logger.Warn("failed to collect receivables", zap.Error(err))
			return nil
		}
		o.ObserveFloat64(outstanding, snap.Outstanding.InexactFloat64())
		o.ObserveInt64(overdue, snap.OverdueCount)
		return nil
	}, outstanding, overdue)
	return err
}

// InvoiceCreated counts one invoice and its total
func (m *BillingMetrics) InvoiceCreated(ctx context.Context, total decimal.Decimal, tripCount int) {
	m.invoicesCreated.Add(ctx, 1)
	m.invoicedAmount.Add(ctx, total.InexactFloat64())
	m.invoiceTrips.Record(ctx, float64(tripCount))
}

// PaymentRecorded counts one payment by mode and resulting status
func (m *BillingMetrics) PaymentRecorded(ctx context.Context, amount decimal.Decimal, mode billing.PaymentMode, status billing.PaymentStatus) {
	m.payments.Add(ctx, 1, metric.WithAttributes(
		AttrPaymentMode.String(string(mode)),
		AttrPaymentStatus.String(string(status)),
	))
	m.paymentAmount.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(AttrPaymentMode.String(string(mode))))
}

// NumberFallback counts a number issued without the counter
func (m *BillingMetrics) NumberFallback(ctx context.Context, kind billing.DocumentKind) {
	m.numberFallbacks.Add(ctx, 1, metric.WithAttributes(AttrDocumentKind.String(string(kind))))
}

// RecordLicenseScan sets the license gauges from a scan result
func (m *BillingMetrics) RecordLicenseScan(ctx context.Context, expired, expiring int) {
	m.licenses.Record(ctx, int64(expired), metric.WithAttributes(AttrLicenseState.String("expired")))
	m.licenses.Record(ctx, int64(expiring), metric.WithAttributes(AttrLicenseState.String("expiring")))
}

var _ appbilling.Metrics = (*BillingMetrics)(nil)
