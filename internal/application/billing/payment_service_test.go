package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
	"github.com/transportops/backoffice/tests/testutil"
	"go.uber.org/zap"
)

type paymentFixture struct {
	payments *MockPaymentRepository
	invoices *MockInvoiceRepository
	bills    *MockBillRepository
	ledger   *MockLedgerRepository
	store    *MockIdempotencyStore
	events   *testutil.MockEventHandler
	svc      *PaymentService
	invoice  *billing.Invoice
	payment  *billing.Payment
}

type handlerPublisher struct{ h *testutil.MockEventHandler }

func (p handlerPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		if err := p.h.Handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func newPaymentFixture(t *testing.T, total string) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		payments: new(MockPaymentRepository),
		invoices: new(MockInvoiceRepository),
		bills:    new(MockBillRepository),
		ledger:   new(MockLedgerRepository),
		store:    new(MockIdempotencyStore),
		events:   testutil.NewMockEventHandler(),
	}
	inv, err := billing.NewInvoice("IN-001", uuid.New(), testutil.Day(2026, time.January, 5),
		billing.TripTotals{TotalAmount: decimal.RequireFromString(total)}, 1, 30)
	require.NoError(t, err)
	inv.ClearEvents()
	f.invoice = inv
	f.payment, _ = billing.NewPaymentForInvoice(inv, nil, time.Now())

	scope := NewNoOpTransactionScope(Repositories{
		Invoices: f.invoices,
		Bills:    f.bills,
		Payments: f.payments,
		Ledger:   f.ledger,
		Events:   handlerPublisher{f.events},
	})
	f.svc = NewPaymentService(scope, f.payments, f.ledger, f.store, DefaultSettings(), zap.NewNop())
	return f
}

func (f *paymentFixture) expectLoad(ctx context.Context) {
	f.payments.On("FindByIDForUpdate", ctx, f.payment.ID).Return(f.payment, nil)
	f.invoices.On("FindByIDForUpdate", ctx, f.invoice.ID).Return(f.invoice, nil)
}

func TestPaymentService_RecordPartialPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("partial payment updates payment, invoice and bill", func(t *testing.T) {
		f := newPaymentFixture(t, "4500")
		bill, err := billing.NewBillFromInvoice("BL-001", f.invoice, nil)
		require.NoError(t, err)
		f.expectLoad(ctx)
		f.bills.On("FindByInvoiceForUpdate", ctx, f.invoice.ID).Return(bill, nil)
		f.payments.On("SaveWithLock", ctx, f.payment).Return(nil)
		f.invoices.On("SaveWithLock", ctx, f.invoice).Return(nil)
		f.bills.On("SaveWithLock", ctx, bill).Return(nil)
		f.ledger.On("Append", ctx, mock.AnythingOfType("*billing.PaymentTransaction")).Return(nil)

		res, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
			Amount:      decimal.NewFromInt(1500),
			PaymentMode: "bank transfer",
			ReferenceNo: " NEFT-88 ",
		})
		require.NoError(t, err)

		assert.Equal(t, "PARTIAL", res.Payment.PaymentStatus)
		assert.True(t, res.Payment.BalanceAmount.Equal(decimal.NewFromInt(3000)))
		assert.Equal(t, "Bank Transfer", res.Transaction.PaymentMode)
		assert.Equal(t, "NEFT-88", res.Transaction.ReferenceNo)
		assert.True(t, res.Transaction.BalanceBefore.Equal(decimal.NewFromInt(4500)))
		assert.True(t, res.Transaction.BalanceAfter.Equal(decimal.NewFromInt(3000)))

		assert.Equal(t, billing.PaymentStatusPartial, f.invoice.PaymentStatus)
		assert.Equal(t, billing.PaymentStatusPartial, bill.PaymentStatus)
		assert.Equal(t, 1, f.events.HandledCount())
		assert.Empty(t, f.payment.PendingEvents())
		f.store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deleted bill is left alone", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		f.expectLoad(ctx)
		f.bills.On("FindByInvoiceForUpdate", ctx, f.invoice.ID).Return(nil, shared.NewNotFoundError("bill not found"))
		f.payments.On("SaveWithLock", ctx, f.payment).Return(nil)
		f.invoices.On("SaveWithLock", ctx, f.invoice).Return(nil)
		f.ledger.On("Append", ctx, mock.Anything).Return(nil)

		res, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(100), PaymentMode: "Cash"})
		require.NoError(t, err)
		assert.Equal(t, "PAID", res.Payment.PaymentStatus)
		f.bills.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount is rejected before any read", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		for _, amount := range []string{"0", "-5"} {
			_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
				Amount:      decimal.RequireFromString(amount),
				PaymentMode: "Cash",
			})
			require.Error(t, err, amount)
			assert.Equal(t, billing.MsgPaymentAmountPositive, err.Error())
		}
		f.payments.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("fractions of a cent are rejected, not rounded", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		for _, amount := range []string{"0.001", "10.005"} {
			_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
				Amount:      decimal.RequireFromString(amount),
				PaymentMode: "Cash",
			})
			require.Error(t, err, amount)
			assert.True(t, shared.IsCode(err, shared.CodeValidation))
			assert.Equal(t, billing.MsgPaymentAmountCents, err.Error())
		}
		f.payments.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(1), PaymentMode: "Barter"})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("overpayment writes nothing and releases the key", func(t *testing.T) {
		f := newPaymentFixture(t, "4500")
		key := "payment:" + f.payment.ID.String() + ":abc"
		f.store.On("MarkProcessed", ctx, key, 24*time.Hour).Return(true, nil)
		f.store.On("Release", ctx, key).Return(nil)
		f.expectLoad(ctx)

		_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
			Amount:         decimal.NewFromInt(5000),
			PaymentMode:    "Cash",
			IdempotencyKey: "abc",
		})
		require.Error(t, err)
		assert.Equal(t, billing.MsgPaymentExceedsBalance, err.Error())

		f.payments.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		f.store.AssertExpectations(t)
		assert.Zero(t, f.events.HandledCount())
	})

	t.Run("replayed key is a conflict", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		f.store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, nil)

		_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(10), PaymentMode: "Cash", IdempotencyKey: "abc",
		})
		assert.ErrorIs(t, err, ErrDuplicateRequest)
		f.payments.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure is an integrity error", func(t *testing.T) {
		f := newPaymentFixture(t, "100")
		cause := errors.New("disk full")
		f.store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		f.expectLoad(ctx)
		f.bills.On("FindByInvoiceForUpdate", ctx, f.invoice.ID).Return(nil, shared.NewNotFoundError("bill not found"))
		f.payments.On("SaveWithLock", ctx, f.payment).Return(cause)

		_, err := f.svc.RecordPartialPayment(ctx, f.payment.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(10), PaymentMode: "Cash", IdempotencyKey: "abc",
		})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeIntegrity))
		assert.ErrorIs(t, err, cause)
		f.store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Transactions(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, "100")

	missing := uuid.New()
	f.payments.On("FindByID", ctx, missing).Return(nil, shared.NewNotFoundError("payment not found"))
	_, err := f.svc.Transactions(ctx, missing)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))

	f.payments.On("FindByID", ctx, f.payment.ID).Return(f.payment, nil)
	f.ledger.On("FindByPayment", ctx, f.payment.ID).Return([]billing.PaymentTransaction{}, nil)
	txns, err := f.svc.Transactions(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}
