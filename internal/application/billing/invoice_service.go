package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrTripsAlreadyInvoiced is returned when a selected trip was linked to
// another invoice while this one was being created
var ErrTripsAlreadyInvoiced = shared.NewConflictError("invoice already exists for selected trips")

// InvoiceService creates invoices from trips and serves invoice reads
type InvoiceService struct {
	scope     TransactionScope
	invoices  billing.InvoiceRepository
	tripLines billing.TripLineReader
	clients   fleet.ClientRepository
	numbers   *NumberService
	settings  Settings
	now       func() time.Time
	logger    *zap.Logger
	metrics   Metrics
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	invoices billing.InvoiceRepository,
	tripLines billing.TripLineReader,
	clients fleet.ClientRepository,
	numbers *NumberService,
	settings Settings,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		scope:     scope,
		invoices:  invoices,
		tripLines: tripLines,
		clients:   clients,
		numbers:   numbers,
		settings:  settings.withDefaults(),
		now:       time.Now,
		logger:    logger,
		metrics:   noopMetrics{},
	}
}

// SetMetrics installs a metrics sink
func (s *InvoiceService) SetMetrics(m Metrics) {
	s.metrics = m
}

// CreateInvoiceFromTrips bills the selected trips of one client.
//
// In one transaction it locks the trips, checks they share the client and a
// calendar date, sums them, issues the invoice number, stores the invoice,
// links every trip to it, then issues the bill number and stores the bill and
// the payment balance. Either all of it is committed or none.
func (s *InvoiceService) CreateInvoiceFromTrips(ctx context.Context, req CreateInvoiceRequest) (*InvoiceCreatedResponse, error) {
	if req.ClientID == uuid.Nil {
		return nil, shared.NewValidationError(billing.MsgClientIDRequired)
	}
	tripIDs := uniqueIDs(req.TripIDs)
	if len(tripIDs) == 0 {
		return nil, shared.NewValidationError(billing.MsgTripsRequired)
	}
	if req.Date != nil && *req.Date != "" {
		if _, err := shared.ParseCalendarDate(*req.Date); err != nil {
			return nil, err
		}
	}
	if _, err := s.clients.FindByID(ctx, req.ClientID); err != nil {
		return nil, err
	}

	var (
		invoice *billing.Invoice
		bill    *billing.Bill
		payment *billing.Payment
		lines   []billing.TripLine
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lines, err = repos.TripLines().LinesForUpdate(ctx, tripIDs)
		if err != nil {
			return err
		}
		date, err := billing.ValidateTripSet(req.ClientID, len(tripIDs), lines)
		if err != nil {
			return err
		}
		totals := billing.AggregateTrips(lines)

		number := s.numbers.Reserve(ctx, repos, billing.DocumentInvoice)
		invoice, err = billing.NewInvoice(number, req.ClientID, date, totals, len(lines), s.settings.DueDays)
		if err != nil {
			return err
		}
		invoice.Notes = strings.TrimSpace(req.Notes)
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}

		linked, err := repos.TripLinker().AssignInvoice(ctx, tripIDs, invoice.ID)
		if err != nil {
			return err
		}
		if linked != int64(len(tripIDs)) {
			return ErrTripsAlreadyInvoiced
		}

		bill, err = billing.NewBillFromInvoice(s.numbers.Reserve(ctx, repos, billing.DocumentBill), invoice, billing.FirstVehicleID(lines))
		if err != nil {
			return err
		}
		if err := repos.Bills().Save(ctx, bill); err != nil {
			return err
		}

		var opening *billing.PaymentTransaction
		payment, opening = billing.NewPaymentForInvoice(invoice, &bill.ID, s.now())
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
		if opening != nil {
			if err := repos.Ledger().Append(ctx, opening); err != nil {
				return err
			}
		}

		events := append(invoice.PendingEvents(), bill.PendingEvents()...)
		return repos.SaveEvents(ctx, events...)
	})
	if err != nil {
		s.logger.Warn("invoice creation rolled back",
			zap.String("client_id", req.ClientID.String()),
			zap.Int("trip_count", len(tripIDs)),
			zap.Error(err),
		)
		return nil, asIntegrity("failed to create invoice", err)
	}
	invoice.ClearEvents()
	bill.ClearEvents()

	s.logger.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("bill_number", bill.BillNumber),
		zap.String("client_id", invoice.ClientID.String()),
		zap.String("total_amount", invoice.TotalAmount.StringFixed(2)),
		zap.Int("trip_count", invoice.TripCount),
	)
	s.metrics.InvoiceCreated(ctx, invoice.TotalAmount, invoice.TripCount)

	today := s.settings.Today(s.now())
	return &InvoiceCreatedResponse{
		Invoice: ToInvoiceResponse(invoice, today),
		Bill:    ToBillResponse(bill),
		Payment: ToPaymentResponse(payment),
		Trips:   ToTripLineResponses(lines),
	}, nil
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, s.settings.Today(s.now()))
	return &resp, nil
}

// GetByNumber retrieves an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, s.settings.Today(s.now()))
	return &resp, nil
}

// List retrieves invoices. With Overdue set only unpaid invoices past their
// due date are returned.
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "date"
	}
	f := billing.InvoiceFilter{
		Filter:        shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		PaymentStatus: billing.PaymentStatus(filter.PaymentStatus),
	}
	var err error
	if f.ClientID, err = parseOptionalUUID(filter.ClientID, "client_id"); err != nil {
		return nil, 0, err
	}
	if f.DateFrom, err = parseOptionalDate(filter.DateFrom); err != nil {
		return nil, 0, err
	}
	if f.DateTo, err = parseOptionalDate(filter.DateTo); err != nil {
		return nil, 0, err
	}
	today := s.settings.Today(s.now())
	if filter.Overdue {
		f.OverdueAsOf = &today
	}

	invoices, err := s.invoices.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoices.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i], today)
	}
	return out, total, nil
}

// Trips returns the billing view of an invoice's trips
func (s *InvoiceService) Trips(ctx context.Context, invoiceID uuid.UUID) ([]TripLineResponse, error) {
	if _, err := s.invoices.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	lines, err := s.tripLines.LinesByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return ToTripLineResponses(lines), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
