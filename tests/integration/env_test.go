//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/cache"
	"github.com/transportops/backoffice/internal/infrastructure/event"
	"github.com/transportops/backoffice/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// env wires the application services over one database
type env struct {
	db       *TestDB
	clients  *appfleet.ClientService
	drivers  *appfleet.DriverService
	vehicles *appfleet.VehicleService
	trips    *appfleet.TripService
	numbers  *appbilling.NumberService
	invoices *appbilling.InvoiceService
	bills    *appbilling.BillService
	payments *appbilling.PaymentService
}

func newEnv(t *testing.T, tdb *TestDB) *env {
	t.Helper()
	db := tdb.DB
	log := zap.NewNop()
	settings := appbilling.DefaultSettings()
	publisher := event.NewOutboxPublisher(event.NewEventSerializer())

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	clientRepo := persistence.NewGormClientRepository(db)
	driverRepo := persistence.NewGormDriverRepository(db)
	vehicleRepo := persistence.NewGormVehicleRepository(db)
	tripRepo := persistence.NewGormTripRepository(db)
	fleetScope := persistence.NewGormFleetTransactionScope(db, publisher)
	billingScope := persistence.NewGormBillingTransactionScope(db, publisher)

	numbers := appbilling.NewNumberService(billingScope, settings, log)
	return &env{
		db:       tdb,
		clients:  appfleet.NewClientService(clientRepo, log),
		drivers:  appfleet.NewDriverService(driverRepo, time.UTC, log),
		vehicles: appfleet.NewVehicleService(vehicleRepo, driverRepo, clientRepo, log),
		trips:    appfleet.NewTripService(fleetScope, tripRepo, clientRepo, driverRepo, vehicleRepo, log),
		numbers:  numbers,
		invoices: appbilling.NewInvoiceService(billingScope, persistence.NewGormInvoiceRepository(db), tripRepo,
			clientRepo, numbers, settings, log),
		bills: appbilling.NewBillService(billingScope, persistence.NewGormBillRepository(db), numbers, log),
		payments: appbilling.NewPaymentService(billingScope, persistence.NewGormPaymentRepository(db),
			persistence.NewGormPaymentTransactionRepository(db), store, settings, log),
	}
}

type fixture struct {
	clientID  uuid.UUID
	driverID  uuid.UUID
	vehicleID uuid.UUID
}

func (e *env) seed(t *testing.T, suffix string) fixture {
	t.Helper()
	ctx := context.Background()

	client, err := e.clients.Create(ctx, appfleet.ClientRequest{Name: "Shree Cement " + suffix})
	require.NoError(t, err)
	driver, err := e.drivers.Create(ctx, appfleet.CreateDriverRequest{Name: "Ravi " + suffix, LicenseNumber: "DL-" + suffix})
	require.NoError(t, err)
	vehicle, err := e.vehicles.Create(ctx, appfleet.VehicleRequest{
		RegistrationNumber: "MH12" + suffix,
		VehicleType:        "Tipper",
		Capacity:           decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	return fixture{clientID: client.ID, driverID: driver.ID, vehicleID: vehicle.ID}
}

func (e *env) trip(t *testing.T, f fixture, date, rate string) uuid.UUID {
	t.Helper()
	trip, err := e.trips.Create(context.Background(), appfleet.TripRequest{
		ClientID:    f.clientID,
		DriverID:    f.driverID,
		VehicleID:   f.vehicleID,
		Date:        &date,
		Source:      "Quarry",
		Destination: "Site 4",
		Quantity:    decimal.NewFromInt(1),
		Rate:        decimal.RequireFromString(rate),
	})
	require.NoError(t, err)
	return trip.ID
}
