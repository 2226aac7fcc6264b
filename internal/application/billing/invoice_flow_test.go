package billing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"github.com/transportops/backoffice/internal/infrastructure/cache"
	"github.com/transportops/backoffice/internal/infrastructure/event"
	"github.com/transportops/backoffice/internal/infrastructure/persistence"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"github.com/transportops/backoffice/tests/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type flow struct {
	db       *gorm.DB
	numbers  *appbilling.NumberService
	invoices *appbilling.InvoiceService
	payments *appbilling.PaymentService
	bills    *appbilling.BillService
	driver   *fleet.Driver
	vehicle  *fleet.Vehicle
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()
	settings := appbilling.DefaultSettings()

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	scope := persistence.NewGormBillingTransactionScope(db, event.NewOutboxPublisher(event.NewEventSerializer()))
	tripRepo := persistence.NewGormTripRepository(db)
	numbers := appbilling.NewNumberService(scope, settings, logger)

	f := &flow{
		db:      db,
		numbers: numbers,
		invoices: appbilling.NewInvoiceService(scope, persistence.NewGormInvoiceRepository(db), tripRepo,
			persistence.NewGormClientRepository(db), numbers, settings, logger),
		payments: appbilling.NewPaymentService(scope, persistence.NewGormPaymentRepository(db),
			persistence.NewGormPaymentTransactionRepository(db), store, settings, logger),
		bills: appbilling.NewBillService(scope, persistence.NewGormBillRepository(db), numbers, logger),
	}

	ctx := context.Background()
	driver, err := fleet.NewDriver("Ravi Kumar", "DL-0420110012345")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormDriverRepository(db).Save(ctx, driver))
	vehicle, err := fleet.NewVehicle("MH12AB1234", "Tipper", decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormVehicleRepository(db).Save(ctx, vehicle))
	f.driver, f.vehicle = driver, vehicle
	return f
}

func (f *flow) client(t *testing.T, name string) *fleet.Client {
	t.Helper()
	c, err := fleet.NewClient(fleet.ClientDetails{Name: name})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormClientRepository(f.db).Save(context.Background(), c))
	return c
}

func (f *flow) trip(t *testing.T, clientID uuid.UUID, date time.Time, amount, paid int64) uuid.UUID {
	t.Helper()
	trip, err := fleet.NewTrip(fleet.TripDetails{
		ClientID:    clientID,
		DriverID:    f.driver.ID,
		VehicleID:   f.vehicle.ID,
		Date:        &date,
		Source:      "Quarry",
		Destination: "Site 4",
		Quantity:    decimal.NewFromInt(1),
		Rate:        decimal.NewFromInt(amount),
		AmountPaid:  decimal.NewFromInt(paid),
	})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormTripRepository(f.db).Save(context.Background(), trip))
	return trip.ID
}

func (f *flow) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateInvoiceFromTrips_ThreeTripsSameDay(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Shree Cement")
	day := testutil.Day(2026, time.January, 5)
	ids := []uuid.UUID{
		f.trip(t, c.ID, day, 1000, 0),
		f.trip(t, c.ID, day.Add(9*time.Hour), 1500, 0),
		f.trip(t, c.ID, day.Add(15*time.Hour), 2000, 0),
	}

	res, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: ids})
	require.NoError(t, err)

	inv := res.Invoice
	assert.Equal(t, "IN-001", inv.InvoiceNumber)
	assert.Equal(t, "2026-01-05", inv.Date)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(4500)))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.True(t, inv.PendingAmount.Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, "UNPAID", inv.PaymentStatus)
	assert.Equal(t, 3, inv.TripCount)
	assert.Equal(t, []string{"MH12AB1234"}, inv.VehicleNumbers)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2026-02-04", *inv.DueDate)

	assert.Equal(t, "BL-001", res.Bill.BillNumber)
	assert.True(t, res.Bill.TotalAmount.Equal(inv.TotalAmount))
	assert.True(t, res.Bill.PendingAmount.Equal(inv.PendingAmount))
	assert.Equal(t, "UNPAID", res.Bill.PaymentStatus)
	assert.Equal(t, &f.vehicle.ID, res.Bill.VehicleID)

	assert.True(t, res.Payment.BalanceAmount.Equal(decimal.NewFromInt(4500)))
	assert.Len(t, res.Trips, 3)

	trips, err := persistence.NewGormTripRepository(f.db).FindByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, trips, 3)
	for _, tr := range trips {
		assert.True(t, tr.IsInvoiced())
	}

	var outbox int64
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).Count(&outbox).Error)
	assert.Equal(t, int64(2), outbox, "InvoiceCreated and BillCreated are written to the outbox")
}

func TestCreateInvoiceFromTrips_Validation(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Acme Aggregates")
	other := f.client(t, "Other Client")
	day := testutil.Day(2026, time.March, 2)

	t1 := f.trip(t, c.ID, day, 100, 0)
	nextDay := f.trip(t, c.ID, day.AddDate(0, 0, 1), 100, 0)
	foreign := f.trip(t, other.ID, day, 100, 0)

	tests := []struct {
		name    string
		req     appbilling.CreateInvoiceRequest
		code    string
		message string
	}{
		{"missing client", appbilling.CreateInvoiceRequest{TripIDs: []uuid.UUID{t1}}, shared.CodeValidation, "client id required"},
		{"no trips", appbilling.CreateInvoiceRequest{ClientID: c.ID}, shared.CodeValidation, "at least one trip required"},
		{"unknown client", appbilling.CreateInvoiceRequest{ClientID: uuid.New(), TripIDs: []uuid.UUID{t1}}, shared.CodeNotFound, "client not found"},
		{"unknown trip", appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: []uuid.UUID{t1, uuid.New()}}, shared.CodeNotFound, "no trips found"},
		{"other client", appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: []uuid.UUID{t1, foreign}}, shared.CodeValidation, "all trips must belong to same client"},
		{"different dates", appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: []uuid.UUID{t1, nextDay}}, shared.CodeValidation, "all trips must be on the same date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoices.CreateInvoiceFromTrips(ctx, tt.req)
			require.Error(t, err)
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.message, de.Message)
		})
	}

	assert.Zero(t, f.count(t, &models.InvoiceModel{}))
	assert.Zero(t, f.count(t, &models.BillModel{}))
	assert.Zero(t, f.count(t, &models.PaymentModel{}))

	trip, err := persistence.NewGormTripRepository(f.db).FindByID(ctx, t1)
	require.NoError(t, err)
	assert.False(t, trip.IsInvoiced())
}

func TestCreateInvoiceFromTrips_TripWithoutDate(t *testing.T) {
	f := newFlow(t)
	c := f.client(t, "No Date Ltd")
	id := f.trip(t, c.ID, testutil.Day(2026, time.April, 1), 100, 0)
	require.NoError(t, f.db.Model(&models.TripModel{}).Where("id = ?", id).Update("date", nil).Error)

	_, err := f.invoices.CreateInvoiceFromTrips(context.Background(), appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: []uuid.UUID{id}})
	require.Error(t, err)
	assert.Equal(t, "trips have no valid date", err.Error())
}

func TestCreateInvoiceFromTrips_InvoicedTripsRejected(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Twice Billed")
	day := testutil.Day(2026, time.May, 10)
	ids := []uuid.UUID{f.trip(t, c.ID, day, 700, 0)}

	_, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: ids})
	require.NoError(t, err)

	_, err = f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: ids})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeConflict))
	assert.Equal(t, int64(1), f.count(t, &models.InvoiceModel{}))
}

func TestCreateInvoiceFromTrips_PrepaidTripsOpenLedger(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Prepaid Co")
	day := testutil.Day(2026, time.June, 1)
	ids := []uuid.UUID{f.trip(t, c.ID, day, 1000, 400), f.trip(t, c.ID, day, 1000, 0)}

	res, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{ClientID: c.ID, TripIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", res.Invoice.PaymentStatus)
	assert.Equal(t, "PARTIAL", res.Bill.PaymentStatus)

	txns, err := f.payments.Transactions(ctx, res.Payment.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "initial", txns[0].TransactionType)
	assert.True(t, txns[0].Amount.Equal(res.Payment.PaidAmount))
}

func TestRecordPartialPayment_SettlesInvoice(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Shree Cement")
	day := testutil.Day(2026, time.January, 5)
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, day, 1000, 0), f.trip(t, c.ID, day, 1500, 0), f.trip(t, c.ID, day, 2000, 0)},
	})
	require.NoError(t, err)

	res, err := f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(4500),
		PaymentMode: "Cash",
	})
	require.NoError(t, err)

	assert.Equal(t, "PAID", res.Payment.PaymentStatus)
	assert.True(t, res.Payment.BalanceAmount.IsZero())
	assert.True(t, res.Transaction.BalanceBefore.Equal(decimal.NewFromInt(4500)))
	assert.True(t, res.Transaction.BalanceAfter.IsZero())
	assert.Equal(t, "payment", res.Transaction.TransactionType)

	txns, err := f.payments.Transactions(ctx, created.Payment.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	inv, err := f.invoices.GetByID(ctx, created.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAID", inv.PaymentStatus)
	assert.True(t, inv.PendingAmount.IsZero())

	bill, err := f.bills.GetByID(ctx, created.Bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAID", bill.PaymentStatus)
}

func TestRecordPartialPayment_OverpaymentLeavesStateUnchanged(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Shree Cement")
	day := testutil.Day(2026, time.January, 5)
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, day, 4500, 0)},
	})
	require.NoError(t, err)

	_, err = f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
		Amount:         decimal.NewFromInt(5000),
		PaymentMode:    "Cash",
		IdempotencyKey: "retry-me",
	})
	require.Error(t, err)
	assert.Equal(t, billing.MsgPaymentExceedsBalance, err.Error())

	p, err := f.payments.GetByID(ctx, created.Payment.ID)
	require.NoError(t, err)
	assert.True(t, p.PaidAmount.IsZero())
	assert.Equal(t, created.Payment.Version, p.Version)
	assert.Zero(t, f.count(t, &models.PaymentTransactionModel{}))

	// the failed attempt released its key, so a corrected retry goes through
	_, err = f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
		Amount:         decimal.NewFromInt(500),
		PaymentMode:    "UPI",
		IdempotencyKey: "retry-me",
	})
	require.NoError(t, err)

	_, err = f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
		Amount:         decimal.NewFromInt(500),
		PaymentMode:    "UPI",
		IdempotencyKey: "retry-me",
	})
	assert.ErrorIs(t, err, appbilling.ErrDuplicateRequest)
}

func TestRecordPartialPayment_LedgerMatchesPaidAmount(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Ledger Check")
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, testutil.Day(2026, time.July, 7), 1000, 0)},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
				Amount:      decimal.NewFromInt(300),
				PaymentMode: "Cash",
			})
		}()
	}
	wg.Wait()

	p, err := f.payments.GetByID(ctx, created.Payment.ID)
	require.NoError(t, err)
	txns, err := f.payments.Transactions(ctx, created.Payment.ID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, txn := range txns {
		sum = sum.Add(txn.Amount)
	}
	assert.Len(t, txns, 3, "only three payments of 300 fit into 1000")
	assert.True(t, sum.Equal(p.PaidAmount))
	assert.True(t, p.PaidAmount.LessThanOrEqual(p.TotalAmount))
	assert.Equal(t, "PARTIAL", p.PaymentStatus)
}

func TestRecordPartialPayment_SkipsDeletedBill(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Deleted Bill")
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, testutil.Day(2026, time.August, 1), 800, 0)},
	})
	require.NoError(t, err)

	require.NoError(t, f.bills.Delete(ctx, created.Bill.ID))
	_, err = f.payments.RecordPartialPayment(ctx, created.Payment.ID, appbilling.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(200),
		PaymentMode: "Cheque",
	})
	require.NoError(t, err)

	_, err = f.bills.GetByID(ctx, created.Bill.ID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))

	restored, err := f.bills.Restore(ctx, created.Bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", restored.PaymentStatus)
	assert.True(t, restored.PendingAmount.Equal(decimal.NewFromInt(600)))
}

func TestBillService_CreateForInvoice(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Rebill")
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, testutil.Day(2026, time.September, 9), 900, 0)},
	})
	require.NoError(t, err)

	_, err = f.bills.CreateForInvoice(ctx, created.Invoice.ID)
	assert.ErrorIs(t, err, billing.ErrBillExists)

	require.NoError(t, f.bills.Delete(ctx, created.Bill.ID))
	bill, err := f.bills.CreateForInvoice(ctx, created.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "BL-002", bill.BillNumber, "numbers of deleted bills are not reissued")

	p, err := f.payments.GetByInvoice(ctx, created.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, &bill.ID, p.BillID)

	_, err = f.bills.Restore(ctx, created.Bill.ID)
	assert.ErrorIs(t, err, billing.ErrBillExists)

	// deleting the reissue lets the first bill come back, and the payment follows it
	require.NoError(t, f.bills.Delete(ctx, bill.ID))
	restored, err := f.bills.Restore(ctx, created.Bill.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Bill.ID, restored.ID)

	p, err = f.payments.GetByInvoice(ctx, created.Invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, p.BillID)
	assert.Equal(t, restored.ID, *p.BillID)

	_, err = f.bills.Restore(ctx, bill.ID)
	assert.ErrorIs(t, err, billing.ErrBillExists)
}

func TestBillRepository_OneLiveBillPerInvoice(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Second Bill")
	created, err := f.invoices.CreateInvoiceFromTrips(ctx, appbilling.CreateInvoiceRequest{
		ClientID: c.ID,
		TripIDs:  []uuid.UUID{f.trip(t, c.ID, testutil.Day(2026, time.October, 3), 700, 0)},
	})
	require.NoError(t, err)

	invoice, err := persistence.NewGormInvoiceRepository(f.db).FindByID(ctx, created.Invoice.ID)
	require.NoError(t, err)
	extra, err := billing.NewBillFromInvoice("BL-900", invoice, nil)
	require.NoError(t, err)

	err = persistence.NewGormBillRepository(f.db).Save(ctx, extra)
	assert.True(t, shared.IsCode(err, shared.CodeConflict), "got %v", err)

	require.NoError(t, f.bills.Delete(ctx, created.Bill.ID))
	assert.NoError(t, persistence.NewGormBillRepository(f.db).Save(ctx, extra))
}

func TestNumberService_SequentialAndConcurrent(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	assert.Equal(t, "IN-001", f.numbers.GenerateInvoiceNumber(ctx))
	assert.Equal(t, "IN-002", f.numbers.GenerateInvoiceNumber(ctx))
	assert.Equal(t, "BL-001", f.numbers.GenerateBillNumber(ctx))

	const n = 20
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.numbers.GenerateInvoiceNumber(ctx)
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for num := range results {
		assert.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("IN-%03d", n+2)])
}

func TestNumberService_FollowsLegacyNumbers(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	c := f.client(t, "Legacy")

	for _, number := range []string{"IN-999", "IN-1000", "IN-0998"} {
		totals := billing.TripTotals{TotalAmount: decimal.NewFromInt(1)}
		inv, err := billing.NewInvoice(number, c.ID, testutil.Day(2025, time.December, 1), totals, 1, 0)
		require.NoError(t, err)
		require.NoError(t, persistence.NewGormInvoiceRepository(f.db).Save(ctx, inv))
	}

	preview, err := f.numbers.Preview(ctx, billing.DocumentInvoice)
	require.NoError(t, err)
	assert.Equal(t, "IN-1001", preview.Number)
	assert.Equal(t, "IN-1001", f.numbers.GenerateInvoiceNumber(ctx))
}
