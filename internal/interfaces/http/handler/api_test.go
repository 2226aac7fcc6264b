package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/cache"
	"github.com/transportops/backoffice/internal/infrastructure/event"
	"github.com/transportops/backoffice/internal/infrastructure/persistence"
	"github.com/transportops/backoffice/internal/interfaces/http/dto"
	"github.com/transportops/backoffice/internal/interfaces/http/handler"
	"github.com/transportops/backoffice/internal/interfaces/http/middleware"
	"github.com/transportops/backoffice/internal/interfaces/http/router"
	"github.com/transportops/backoffice/tests/testutil"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()
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

	numbers := appbilling.NewNumberService(billingScope, settings, logger)
	invoices := appbilling.NewInvoiceService(billingScope, persistence.NewGormInvoiceRepository(db), tripRepo,
		clientRepo, numbers, settings, logger)
	bills := appbilling.NewBillService(billingScope, persistence.NewGormBillRepository(db), numbers, logger)
	payments := appbilling.NewPaymentService(billingScope, persistence.NewGormPaymentRepository(db),
		persistence.NewGormPaymentTransactionRepository(db), store, settings, logger)

	engine := testutil.NewEngine()
	engine.Use(middleware.RequestID())
	router.MountAPI(engine, router.APIVersion, router.Resources(router.Handlers{
		Clients:  handler.NewClientHandler(appfleet.NewClientService(clientRepo, logger)),
		Drivers:  handler.NewDriverHandler(appfleet.NewDriverService(driverRepo, time.UTC, logger)),
		Vehicles: handler.NewVehicleHandler(appfleet.NewVehicleService(vehicleRepo, driverRepo, clientRepo, logger)),
		Trips:    handler.NewTripHandler(appfleet.NewTripService(fleetScope, tripRepo, clientRepo, driverRepo, vehicleRepo, logger)),
		Invoices: handler.NewInvoiceHandler(invoices, bills, payments),
		Bills:    handler.NewBillHandler(bills),
		Payments: handler.NewPaymentHandler(payments),
		Numbers:  handler.NewNumberHandler(numbers),
	})...)

	return &api{engine: engine}
}

func (a *api) do(t *testing.T, method, path string, body any, headers ...map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoJSON(t, a.engine, method, path, body, headers...)
}

// create posts body and returns the data object of the 201 response
func (a *api) create(t *testing.T, path string, body any) map[string]any {
	t.Helper()
	w := a.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
}

func (a *api) get(t *testing.T, path string) map[string]any {
	t.Helper()
	w := a.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return testutil.AssertSuccessResponse(t, w)
}

type seeded struct {
	clientID  string
	driverID  string
	vehicleID string
}

func (a *api) seed(t *testing.T) seeded {
	t.Helper()
	client := a.create(t, "/api/v1/clients", map[string]any{"name": "Shree Cement"})
	driver := a.create(t, "/api/v1/drivers", map[string]any{"name": "Ravi Kumar", "license_number": "DL-0420110012345"})
	vehicle := a.create(t, "/api/v1/vehicles", map[string]any{
		"registration_number": "MH12AB1234",
		"vehicle_type":        "Tipper",
		"capacity":            "20",
	})
	return seeded{
		clientID:  client["id"].(string),
		driverID:  driver["id"].(string),
		vehicleID: vehicle["id"].(string),
	}
}

func (a *api) trip(t *testing.T, s seeded, date, rate string) string {
	t.Helper()
	trip := a.create(t, "/api/v1/trips", map[string]any{
		"client_id":   s.clientID,
		"driver_id":   s.driverID,
		"vehicle_id":  s.vehicleID,
		"date":        date,
		"source":      "Quarry",
		"destination": "Site 4",
		"quantity":    "1",
		"rate":        rate,
	})
	return trip["id"].(string)
}

func amount(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "amount %v is not a JSON string", v)
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestInvoiceLifecycle(t *testing.T) {
	a := newAPI(t)
	s := a.seed(t)

	next := a.get(t, "/api/v1/numbers/next?kind=invoice")["data"].(map[string]any)
	assert.Equal(t, "IN-001", next["number"])

	trips := []string{
		a.trip(t, s, "2026-01-05", "1000"),
		a.trip(t, s, "2026-01-05", "1500"),
		a.trip(t, s, "2026-01-05", "2000"),
	}

	created := a.create(t, "/api/v1/invoices", map[string]any{
		"client_id": s.clientID,
		"trip_ids":  trips,
	})
	invoice := created["invoice"].(map[string]any)
	bill := created["bill"].(map[string]any)
	payment := created["payment"].(map[string]any)

	assert.Equal(t, "IN-001", invoice["invoice_number"])
	assert.Equal(t, "2026-01-05", invoice["date"])
	assert.True(t, amount(t, invoice["total_amount"]).Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, "UNPAID", invoice["payment_status"])
	assert.Equal(t, "BL-001", bill["bill_number"])
	assert.True(t, amount(t, payment["balance_amount"]).Equal(decimal.NewFromInt(4500)))

	invoiceID := invoice["id"].(string)
	paymentID := payment["id"].(string)

	lines := a.get(t, "/api/v1/invoices/"+invoiceID+"/trips")["data"].([]any)
	assert.Len(t, lines, 3)

	byNumber := a.get(t, "/api/v1/invoices/by-number/IN-001")["data"].(map[string]any)
	assert.Equal(t, invoiceID, byNumber["id"])

	t.Run("trips cannot be invoiced twice", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
			"client_id": s.clientID,
			"trip_ids":  trips[:1],
		})
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("partial payment", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/transactions",
			map[string]any{"amount": "1500", "payment_mode": "upi", "reference_no": "UTR-1"},
			map[string]string{middleware.IdempotencyKeyHeader: "pay-1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
		paid := data["payment"].(map[string]any)
		txn := data["transaction"].(map[string]any)
		assert.Equal(t, "PARTIAL", paid["payment_status"])
		assert.True(t, amount(t, paid["balance_amount"]).Equal(decimal.NewFromInt(3000)))
		assert.Equal(t, "UPI", txn["payment_mode"])
		assert.True(t, amount(t, txn["balance_before"]).Equal(decimal.NewFromInt(4500)))
		assert.True(t, amount(t, txn["balance_after"]).Equal(decimal.NewFromInt(3000)))

		inv := a.get(t, "/api/v1/invoices/"+invoiceID)["data"].(map[string]any)
		assert.Equal(t, "PARTIAL", inv["payment_status"])
		assert.True(t, amount(t, inv["amount_paid"]).Equal(decimal.NewFromInt(1500)))
	})

	t.Run("replayed idempotency key is rejected", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/transactions",
			map[string]any{"amount": "1500", "payment_mode": "UPI"},
			map[string]string{middleware.IdempotencyKeyHeader: "pay-1"})
		testutil.AssertErrorResponse(t, w, http.StatusConflict, dto.ErrCodeConflict, "duplicate request")
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/transactions",
			map[string]any{"amount": "3000.01", "payment_mode": "Cash"})
		testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation,
			"payment amount exceeds outstanding balance")
	})

	t.Run("unknown payment mode is rejected by binding", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/transactions",
			map[string]any{"amount": "10", "payment_mode": "Barter"})
		testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation, "")
		errObj := testutil.JSONBody(t, w)["error"].(map[string]any)
		details := errObj["details"].([]any)
		require.Len(t, details, 1)
		assert.Equal(t, "payment_mode", details[0].(map[string]any)["field"])
	})

	t.Run("settling payment", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/transactions",
			map[string]any{"amount": "3000", "payment_mode": "Bank Transfer"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		p := a.get(t, "/api/v1/invoices/"+invoiceID+"/payment")["data"].(map[string]any)
		assert.Equal(t, "PAID", p["payment_status"])
		assert.True(t, amount(t, p["balance_amount"]).IsZero())

		ledger := a.get(t, "/api/v1/payments/"+paymentID+"/transactions")["data"].([]any)
		require.Len(t, ledger, 2)
		assert.Equal(t, "UPI", ledger[0].(map[string]any)["payment_mode"])

		b := a.get(t, "/api/v1/bills/"+bill["id"].(string))["data"].(map[string]any)
		assert.Equal(t, "PAID", b["payment_status"])
	})
}

func TestInvoiceCreate_Validation(t *testing.T) {
	a := newAPI(t)
	s := a.seed(t)
	first := a.trip(t, s, "2026-01-05", "1000")
	second := a.trip(t, s, "2026-01-06", "1000")

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"no trips", map[string]any{"client_id": s.clientID, "trip_ids": []string{}}, "at least one trip required"},
		{"mixed dates", map[string]any{"client_id": s.clientID, "trip_ids": []string{first, second}}, "all trips must be on the same date"},
		{"bad date hint", map[string]any{"client_id": s.clientID, "trip_ids": []string{first}, "date": "05/01/2026"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/v1/invoices", tt.body)
			testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation, tt.message)
		})
	}

	w := a.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"client_id": s.clientID,
		"trip_ids":  []string{first, uuid.NewString()},
	})
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound, "no trips found")

	// nothing was written by the rejected requests
	next := a.get(t, "/api/v1/numbers/next?kind=invoice")["data"].(map[string]any)
	assert.Equal(t, "IN-001", next["number"])
}

func TestBillDeleteAndRestore(t *testing.T) {
	a := newAPI(t)
	s := a.seed(t)
	created := a.create(t, "/api/v1/invoices", map[string]any{
		"client_id": s.clientID,
		"trip_ids":  []string{a.trip(t, s, "2026-02-10", "800")},
	})
	billID := created["bill"].(map[string]any)["id"].(string)
	invoiceID := created["invoice"].(map[string]any)["id"].(string)

	w := a.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/bill", nil)
	testutil.AssertErrorResponse(t, w, http.StatusConflict, dto.ErrCodeConflict, "bill already exists for invoice")

	w = a.do(t, http.MethodDelete, "/api/v1/bills/"+billID, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	list := a.get(t, "/api/v1/bills")
	assert.Empty(t, list["data"])
	list = a.get(t, "/api/v1/bills?include_deleted=true")
	assert.Len(t, list["data"], 1)

	w = a.do(t, http.MethodPost, "/api/v1/bills/"+billID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restored := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Nil(t, restored["deleted_at"])
	assert.Equal(t, "BL-001", restored["bill_number"])
}

func TestNumberNext(t *testing.T) {
	a := newAPI(t)

	bill := a.get(t, "/api/v1/numbers/next?kind=bill")["data"].(map[string]any)
	assert.Equal(t, "BL-001", bill["number"])
	assert.Equal(t, "bill", bill["kind"])

	w := a.do(t, http.MethodGet, "/api/v1/numbers/next?kind=receipt", nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest, "kind must be invoice or bill")
}

func TestTripStatusAndFilters(t *testing.T) {
	a := newAPI(t)
	s := a.seed(t)
	id := a.trip(t, s, "2026-03-01", "1200")

	w := a.do(t, http.MethodPost, "/api/v1/trips/"+id+"/status", map[string]any{"status": "Running"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Running", testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)["status"])

	w = a.do(t, http.MethodPost, "/api/v1/trips/"+id+"/status", map[string]any{"status": "Lost"})
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation, "")

	w = a.do(t, http.MethodPost, "/api/v1/trips/"+id+"/status", map[string]any{"status": "Pending"})
	testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState,
		"cannot change trip status from Running to Pending")

	open := a.get(t, "/api/v1/trips?invoiced=false")
	assert.Len(t, open["data"], 1)
	assert.Equal(t, float64(1), open["meta"].(map[string]any)["total"])

	w = a.do(t, http.MethodGet, "/api/v1/trips/not-a-uuid", nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid trip ID format")
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	engine := testutil.NewEngine()
	engine.GET("/health", handler.NewHealthHandler(stubPinger{}, nil, "1.2.3").Health)

	w := testutil.DoJSON(t, engine, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "1.2.3", data["version"])

	down := testutil.NewEngine()
	down.GET("/health", handler.NewHealthHandler(stubPinger{err: context.DeadlineExceeded}, nil, "1.2.3").Health)
	w = testutil.DoJSON(t, down, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}
