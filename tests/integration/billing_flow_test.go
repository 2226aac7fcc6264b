//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
)

func TestInvoiceFlow_Postgres(t *testing.T) {
	e := newEnv(t, NewSharedTestDB(t))
	ctx := context.Background()
	f := e.seed(t, "A1")

	tripIDs := []uuid.UUID{
		e.trip(t, f, "2026-02-04", "1500"),
		e.trip(t, f, "2026-02-04", "3000"),
	}

	created, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: f.clientID, TripIDs: tripIDs})
	require.NoError(t, err)
	assert.Equal(t, "IN-001", created.Invoice.InvoiceNumber)
	assert.Equal(t, "BL-001", created.Bill.BillNumber)
	assert.True(t, created.Invoice.TotalAmount.Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, "2026-02-04", created.Invoice.Date)
	assert.Equal(t, int64(2), e.db.CountRows("trips", "invoice_id = ?", created.Invoice.ID))

	t.Run("outbox rows are written with the invoice", func(t *testing.T) {
		assert.Equal(t, int64(1), e.db.CountRows("outbox_events", "event_type = ?", billing.EventTypeInvoiceCreated))
		assert.Equal(t, int64(1), e.db.CountRows("outbox_events", "event_type = ?", billing.EventTypeBillCreated))
	})

	t.Run("trips cannot be invoiced twice", func(t *testing.T) {
		_, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: f.clientID, TripIDs: tripIDs})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeConflict), err)
		assert.Equal(t, int64(1), e.db.CountRows("invoices", ""))
	})

	t.Run("partial then full payment", func(t *testing.T) {
		paymentID := created.Payment.ID

		res, err := e.payments.RecordPartialPayment(ctx, paymentID, appbilling.RecordPaymentRequest{
			Amount:      decimal.NewFromInt(1500),
			PaymentMode: "UPI",
		})
		require.NoError(t, err)
		assert.Equal(t, string(billing.PaymentStatusPartial), res.Payment.PaymentStatus)
		assert.True(t, res.Transaction.BalanceAfter.Equal(decimal.NewFromInt(3000)))

		_, err = e.payments.RecordPartialPayment(ctx, paymentID, appbilling.RecordPaymentRequest{
			Amount:      decimal.RequireFromString("3000.01"),
			PaymentMode: "Cash",
		})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation), err)

		res, err = e.payments.RecordPartialPayment(ctx, paymentID, appbilling.RecordPaymentRequest{
			Amount:      decimal.NewFromInt(3000),
			PaymentMode: "Cash",
		})
		require.NoError(t, err)
		assert.Equal(t, string(billing.PaymentStatusPaid), res.Payment.PaymentStatus)

		bill, err := e.bills.GetByID(ctx, created.Bill.ID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.PaymentStatusPaid), bill.PaymentStatus)
		assert.True(t, bill.PendingAmount.IsZero())

		invoice, err := e.invoices.GetByID(ctx, created.Invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.PaymentStatusPaid), invoice.PaymentStatus)
		assert.False(t, invoice.IsOverdue)
	})
}

func TestInvoiceCreate_RollsBackOnMixedDates(t *testing.T) {
	e := newEnv(t, NewSharedTestDB(t))
	ctx := context.Background()
	f := e.seed(t, "B1")

	_, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: f.clientID,
		TripIDs:  []uuid.UUID{e.trip(t, f, "2026-02-04", "100"), e.trip(t, f, "2026-02-05", "100")},
	})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeValidation), err)

	assert.Zero(t, e.db.CountRows("invoices", ""))
	assert.Zero(t, e.db.CountRows("bills", ""))
	assert.Zero(t, e.db.CountRows("trips", "invoice_id IS NOT NULL"))

	next, err := e.numbers.Preview(ctx, billing.DocumentInvoice)
	require.NoError(t, err)
	assert.Equal(t, "IN-001", next.Number)
}

func TestConcurrentPayments_SerializeOnRowLock(t *testing.T) {
	e := newEnv(t, NewSharedTestDB(t))
	ctx := context.Background()
	f := e.seed(t, "C1")

	created, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: f.clientID,
		TripIDs:  []uuid.UUID{e.trip(t, f, "2026-03-01", "4500")},
	})
	require.NoError(t, err)

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
				Amount:      decimal.NewFromInt(500),
				PaymentMode: "Cash",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case shared.IsCode(err, shared.CodeValidation):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 4500 / 500
	assert.Equal(t, 9, succeeded)
	assert.Equal(t, attempts-9, rejected)

	payment, err := e.payments.GetByID(ctx, created.Payment.ID)
	require.NoError(t, err)
	assert.True(t, payment.PaidAmount.Equal(decimal.NewFromInt(4500)), payment.PaidAmount.String())
	assert.True(t, payment.BalanceAmount.IsZero())
	assert.Equal(t, string(billing.PaymentStatusPaid), payment.PaymentStatus)

	ledger, err := e.payments.Transactions(ctx, created.Payment.ID)
	require.NoError(t, err)
	var payments int
	for _, tx := range ledger {
		if tx.TransactionType != string(billing.TransactionTypePayment) {
			continue
		}
		payments++
		assert.True(t, tx.BalanceBefore.Sub(tx.Amount).Equal(tx.BalanceAfter))
	}
	assert.Equal(t, 9, payments)
}

func TestConcurrentInvoiceCreation(t *testing.T) {
	e := newEnv(t, NewTestDB(t))
	ctx := context.Background()
	f := e.seed(t, "D1")

	t.Run("same trips produce one invoice", func(t *testing.T) {
		tripIDs := []uuid.UUID{e.trip(t, f, "2026-04-01", "800"), e.trip(t, f, "2026-04-01", "200")}

		var wg sync.WaitGroup
		errs := make(chan error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: f.clientID, TripIDs: tripIDs})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok, conflicts int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr), err)
			assert.True(t, shared.IsCode(err, shared.CodeConflict), err)
			conflicts++
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 4, conflicts)
		assert.Equal(t, int64(1), e.db.CountRows("invoices", ""))
	})

	t.Run("distinct trips get distinct numbers", func(t *testing.T) {
		const n = 6
		tripIDs := make([]uuid.UUID, n)
		for i := range tripIDs {
			tripIDs[i] = e.trip(t, f, "2026-04-02", "100")
		}

		var wg sync.WaitGroup
		numbers := make(chan string, n)
		for _, id := range tripIDs {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				res, err := e.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: f.clientID, TripIDs: []uuid.UUID{id}})
				if assert.NoError(t, err) {
					numbers <- res.Invoice.InvoiceNumber
				}
			}(id)
		}
		wg.Wait()
		close(numbers)

		seen := map[string]bool{}
		for num := range numbers {
			assert.False(t, seen[num], "duplicate number %s", num)
			seen[num] = true
		}
		assert.Len(t, seen, n)
		// IN-001 went to the first subtest
		for i := 2; i <= n+1; i++ {
			assert.True(t, seen[fmt.Sprintf("IN-%03d", i)], "missing IN-%03d", i)
		}
	})
}
