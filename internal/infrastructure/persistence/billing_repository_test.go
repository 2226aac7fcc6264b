package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"github.com/transportops/backoffice/tests/testutil"
	"gorm.io/gorm"
)

type fixtures struct {
	db      *gorm.DB
	client  *fleet.Client
	driver  *fleet.Driver
	vehicle *fleet.Vehicle
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)

	client, err := fleet.NewClient(fleet.ClientDetails{Name: "Shree Aggregates"})
	require.NoError(t, err)
	require.NoError(t, NewGormClientRepository(db).Save(ctx, client))

	driver, err := fleet.NewDriver("Anil Patil", "MH-1420090034567")
	require.NoError(t, err)
	require.NoError(t, NewGormDriverRepository(db).Save(ctx, driver))

	vehicle, err := fleet.NewVehicle("MH14CD5678", "Dumper", decimal.NewFromInt(16))
	require.NoError(t, err)
	require.NoError(t, NewGormVehicleRepository(db).Save(ctx, vehicle))

	return &fixtures{db: db, client: client, driver: driver, vehicle: vehicle}
}

func (f *fixtures) trip(t *testing.T, date time.Time, rate int64) *fleet.Trip {
	t.Helper()
	trip, err := fleet.NewTrip(fleet.TripDetails{
		ClientID:    f.client.ID,
		DriverID:    f.driver.ID,
		VehicleID:   f.vehicle.ID,
		Date:        &date,
		Source:      "Wagholi",
		Destination: "Hadapsar",
		Quantity:    decimal.NewFromInt(1),
		Rate:        decimal.NewFromInt(rate),
	})
	require.NoError(t, err)
	require.NoError(t, NewGormTripRepository(f.db).Save(context.Background(), trip))
	return trip
}

func (f *fixtures) invoice(t *testing.T, number string, date time.Time, total int64) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(number, f.client.ID, date,
		billing.TripTotals{TotalAmount: decimal.NewFromInt(total)}, 1, 30)
	require.NoError(t, err)
	require.NoError(t, NewGormInvoiceRepository(f.db).Save(context.Background(), inv))
	return inv
}

func TestGormTripRepository_LinesForUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	later := f.trip(t, testutil.Day(2026, time.March, 2), 900)
	earlier := f.trip(t, testutil.Day(2026, time.March, 1), 1200)

	repo := NewGormTripRepository(f.db)
	lines, err := repo.LinesForUpdate(ctx, []uuid.UUID{later.ID, earlier.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, earlier.ID, lines[0].TripID)
	assert.Equal(t, "MH14CD5678", lines[0].VehicleNumber)
	assert.Equal(t, "Anil Patil", lines[0].DriverName)
	assert.True(t, lines[0].Amount.Valid)
	assert.True(t, lines[0].Amount.Decimal.Equal(decimal.NewFromInt(1200)))
	assert.Nil(t, lines[0].InvoiceID)
	assert.Equal(t, later.ID, lines[1].TripID)

	empty, err := repo.LinesForUpdate(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormTripRepository_AssignInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	day := testutil.Day(2026, time.March, 1)
	a, b := f.trip(t, day, 100), f.trip(t, day, 200)
	first := f.invoice(t, "IN-001", day, 100)
	second := f.invoice(t, "IN-002", day, 300)

	repo := NewGormTripRepository(f.db)
	n, err := repo.AssignInvoice(ctx, []uuid.UUID{a.ID}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// an already linked trip is never re-linked
	n, err = repo.AssignInvoice(ctx, []uuid.UUID{a.ID, b.ID}, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	lines, err := repo.LinesByInvoice(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, a.ID, lines[0].TripID)

	stored, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.InvoiceID)
	assert.Equal(t, second.ID, *stored.InvoiceID)
	assert.Equal(t, b.Version+1, stored.Version)

	err = repo.Delete(ctx, a.ID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	f.invoice(t, "IN-001", testutil.Day(2026, time.March, 1), 1000)
	repo := NewGormInvoiceRepository(f.db)

	stored, err := repo.FindByNumber(ctx, "IN-001")
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, stored.ID)
	require.NoError(t, err)

	require.NoError(t, stored.ApplyPayment(decimal.NewFromInt(400)))
	require.NoError(t, repo.SaveWithLock(ctx, stored))

	require.NoError(t, stale.ApplyPayment(decimal.NewFromInt(100)))
	err = repo.SaveWithLock(ctx, stale)
	assert.True(t, shared.IsCode(err, shared.CodeConcurrencyConflict))

	reloaded, err := repo.FindByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.AmountPaid.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, billing.PaymentStatusPartial, reloaded.PaymentStatus)

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, "invoice not found", err.Error())
}

func TestGormInvoiceRepository_DuplicateNumberConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	f.invoice(t, "IN-001", testutil.Day(2026, time.March, 1), 1000)

	dup, err := billing.NewInvoice("IN-001", f.client.ID, testutil.Day(2026, time.March, 2),
		billing.TripTotals{TotalAmount: decimal.NewFromInt(10)}, 1, 30)
	require.NoError(t, err)
	err = NewGormInvoiceRepository(f.db).Save(ctx, dup)
	assert.True(t, shared.IsCode(err, shared.CodeConflict))
}

func TestGormInvoiceRepository_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	old := f.invoice(t, "IN-001", testutil.Day(2026, time.January, 1), 500)
	f.invoice(t, "IN-002", testutil.Day(2026, time.March, 1), 700)
	settled := f.invoice(t, "IN-003", testutil.Day(2026, time.January, 2), 300)
	repo := NewGormInvoiceRepository(f.db)

	require.NoError(t, settled.ApplyPayment(decimal.NewFromInt(300)))
	require.NoError(t, repo.SaveWithLock(ctx, settled))

	asOf := testutil.Day(2026, time.March, 15)
	overdue, err := repo.FindAll(ctx, billing.InvoiceFilter{Filter: shared.DefaultFilter(), OverdueAsOf: &asOf})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, old.ID, overdue[0].ID)

	from := testutil.Day(2026, time.February, 1)
	n, err := repo.Count(ctx, billing.InvoiceFilter{DateFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Count(ctx, billing.InvoiceFilter{PaymentStatus: billing.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	numbers, err := repo.NumbersWithPrefix(ctx, "IN")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"IN-001", "IN-002", "IN-003"}, numbers)

	numbers, err = repo.NumbersWithPrefix(ctx, "I")
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestGormBillRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	inv := f.invoice(t, "IN-001", testutil.Day(2026, time.March, 1), 1000)
	repo := NewGormBillRepository(f.db)

	bill, err := billing.NewBillFromInvoice("BL-001", inv, &f.vehicle.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, bill))

	live, err := repo.ExistsForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, bill.SoftDelete(time.Now()))
	require.NoError(t, repo.SaveWithLock(ctx, bill))

	live, err = repo.ExistsForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, live)

	_, err = repo.FindByID(ctx, bill.ID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	_, err = repo.FindByInvoiceForUpdate(ctx, inv.ID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))

	deleted, err := repo.FindByIDIncludingDeleted(ctx, bill.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	n, err := repo.Count(ctx, billing.BillFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Count(ctx, billing.BillFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	numbers, err := repo.NumbersWithPrefix(ctx, "BL")
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-001"}, numbers)

	require.NoError(t, deleted.Restore(inv))
	require.NoError(t, repo.SaveWithLock(ctx, deleted))
	restored, err := repo.FindByInvoiceForUpdate(ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
}

func TestGormPaymentRepository_Ledger(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	inv := f.invoice(t, "IN-001", testutil.Day(2026, time.March, 1), 1000)
	payments := NewGormPaymentRepository(f.db)
	ledger := NewGormPaymentTransactionRepository(f.db)

	payment, _ := billing.NewPaymentForInvoice(inv, nil, time.Now())
	require.NoError(t, payments.Save(ctx, payment))

	for _, amount := range []int64{250, 150} {
		locked, err := payments.FindByIDForUpdate(ctx, payment.ID)
		require.NoError(t, err)
		txn, err := locked.RecordPayment(billing.PaymentEntry{
			Amount: decimal.NewFromInt(amount),
			Mode:   billing.PaymentModeCash,
		}, time.Now())
		require.NoError(t, err)
		require.NoError(t, payments.SaveWithLock(ctx, locked))
		require.NoError(t, ledger.Append(ctx, txn))
	}

	stored, err := payments.FindByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, stored.BalanceAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, billing.PaymentModeCash, stored.LastPaymentMode)

	txns, err := ledger.FindByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].BalanceBefore.Equal(decimal.NewFromInt(1000)))
	assert.True(t, txns[1].BalanceAfter.Equal(decimal.NewFromInt(600)))
}

func TestGormSequenceRepository_Reserve(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormSequenceRepository(db)

	current, err := repo.Current(ctx, "IN")
	require.NoError(t, err)
	assert.Zero(t, current)

	next, err := repo.Reserve(ctx, "IN", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	next, err = repo.Reserve(ctx, "IN", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	// a higher floor from legacy numbers wins over the counter
	next, err = repo.Reserve(ctx, "IN", 999)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), next)

	// a lower floor never moves the counter back
	next, err = repo.Reserve(ctx, "IN", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), next)

	other, err := repo.Reserve(ctx, "BL", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	current, err = repo.Current(ctx, "IN")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), current)
}
