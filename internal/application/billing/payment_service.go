package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrDuplicateRequest is returned when an Idempotency-Key is replayed
var ErrDuplicateRequest = shared.NewConflictError("duplicate request")

// PaymentService records partial payments against an invoice's balance
type PaymentService struct {
	scope       TransactionScope
	payments    billing.PaymentRepository
	ledger      billing.PaymentTransactionRepository
	idempotency shared.IdempotencyStore
	settings    Settings
	now         func() time.Time
	logger      *zap.Logger
	metrics     Metrics
}

// NewPaymentService creates a new PaymentService. idempotency may be nil, in
// which case Idempotency-Key headers are ignored.
func NewPaymentService(
	scope TransactionScope,
	payments billing.PaymentRepository,
	ledger billing.PaymentTransactionRepository,
	idempotency shared.IdempotencyStore,
	settings Settings,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		scope:       scope,
		payments:    payments,
		ledger:      ledger,
		idempotency: idempotency,
		settings:    settings.withDefaults(),
		now:         time.Now,
		logger:      logger,
		metrics:     noopMetrics{},
	}
}

// SetMetrics installs a metrics sink
func (s *PaymentService) SetMetrics(m Metrics) {
	s.metrics = m
}

// RecordPartialPayment applies a payment to the balance of paymentID.
//
// The payment, invoice and live bill rows are locked in that order, the new
// balance is validated against the freshly read one, and the three documents
// plus one ledger row are written in a single transaction. Overpayment,
// non-positive amounts and fractions of a cent are rejected before anything
// is written.
func (s *PaymentService) RecordPartialPayment(ctx context.Context, paymentID uuid.UUID, req RecordPaymentRequest) (*PaymentRecordedResponse, error) {
	amount := req.Amount
	if !amount.IsPositive() {
		return nil, shared.NewValidationError(billing.MsgPaymentAmountPositive)
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, shared.NewValidationError(billing.MsgPaymentAmountCents)
	}
	mode, err := billing.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return nil, err
	}

	key, err := s.claimKey(ctx, paymentID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var (
		payment *billing.Payment
		txn     *billing.PaymentTransaction
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.Payments().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}

		txn, err = payment.RecordPayment(billing.PaymentEntry{
			Amount:      amount,
			Mode:        mode,
			ReferenceNo: req.ReferenceNo,
			Remarks:     req.Remarks,
		}, s.now())
		if err != nil {
			return err
		}
		if err := invoice.ApplyPayment(amount); err != nil {
			return err
		}

		bill, err := repos.Bills().FindByInvoiceForUpdate(ctx, invoice.ID)
		switch {
		case err == nil:
			bill.SyncFromInvoice(invoice)
		case shared.IsCode(err, shared.CodeNotFound):
			bill = nil
		default:
			return err
		}

		if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		if bill != nil {
			if err := repos.Bills().SaveWithLock(ctx, bill); err != nil {
				return err
			}
		}
		if err := repos.Ledger().Append(ctx, txn); err != nil {
			return err
		}
		return repos.SaveEvents(ctx, payment.PendingEvents()...)
	})
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, asIntegrity("failed to record payment", err)
	}
	payment.ClearEvents()

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("mode", string(mode)),
		zap.String("balance_after", txn.BalanceAfter.StringFixed(2)),
		zap.String("payment_status", string(payment.PaymentStatus)),
	)
	s.metrics.PaymentRecorded(ctx, amount, mode, payment.PaymentStatus)

	return &PaymentRecordedResponse{
		Payment:     ToPaymentResponse(payment),
		Transaction: ToPaymentTransactionResponse(txn),
	}, nil
}

// GetByID retrieves a payment balance by ID
func (s *PaymentService) GetByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// GetByInvoice retrieves the payment balance of an invoice
func (s *PaymentService) GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*PaymentResponse, error) {
	p, err := s.payments.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// Transactions returns the ledger of a payment, oldest first
func (s *PaymentService) Transactions(ctx context.Context, paymentID uuid.UUID) ([]PaymentTransactionResponse, error) {
	if _, err := s.payments.FindByID(ctx, paymentID); err != nil {
		return nil, err
	}
	txns, err := s.ledger.FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentTransactionResponse, len(txns))
	for i := range txns {
		out[i] = ToPaymentTransactionResponse(&txns[i])
	}
	return out, nil
}

// claimKey records the idempotency key before the payment is attempted.
// It returns "" when no key applies.
func (s *PaymentService) claimKey(ctx context.Context, paymentID uuid.UUID, idempotencyKey string) (string, error) {
	if idempotencyKey == "" || s.idempotency == nil {
		return "", nil
	}
	key := "payment:" + paymentID.String() + ":" + idempotencyKey
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.settings.IdempotencyTTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, recording without deduplication",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err),
		)
		return "", nil
	}
	if !fresh {
		return "", ErrDuplicateRequest
	}
	return key, nil
}

// releaseKey lets a client retry a request that failed
func (s *PaymentService) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}
