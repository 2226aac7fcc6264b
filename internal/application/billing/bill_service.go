package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// BillService manages bills after they were created with their invoice
type BillService struct {
	scope   TransactionScope
	bills   billing.BillRepository
	numbers *NumberService
	now     func() time.Time
	logger  *zap.Logger
}

// NewBillService creates a new BillService
func NewBillService(scope TransactionScope, bills billing.BillRepository, numbers *NumberService, logger *zap.Logger) *BillService {
	return &BillService{
		scope:   scope,
		bills:   bills,
		numbers: numbers,
		now:     time.Now,
		logger:  logger,
	}
}

// GetByID retrieves a live bill
func (s *BillService) GetByID(ctx context.Context, id uuid.UUID) (*BillResponse, error) {
	b, err := s.bills.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(b)
	return &resp, nil
}

// List retrieves bills; soft-deleted bills are hidden unless requested
func (s *BillService) List(ctx context.Context, filter BillListFilter) ([]BillResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "date"
	}
	f := billing.BillFilter{
		Filter:         shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		PaymentStatus:  billing.PaymentStatus(filter.PaymentStatus),
		IncludeDeleted: filter.IncludeDeleted,
	}
	var err error
	if f.ClientID, err = parseOptionalUUID(filter.ClientID, "client_id"); err != nil {
		return nil, 0, err
	}

	bills, err := s.bills.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.bills.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i])
	}
	return out, total, nil
}

// CreateForInvoice issues a new bill for an invoice whose bill was deleted.
// An invoice never has more than one live bill.
func (s *BillService) CreateForInvoice(ctx context.Context, invoiceID uuid.UUID) (*BillResponse, error) {
	var bill *billing.Bill
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, invoice, err := lockForRebill(ctx, repos, invoiceID)
		if err != nil {
			return err
		}

		lines, err := repos.TripLines().LinesByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		bill, err = billing.NewBillFromInvoice(s.numbers.Reserve(ctx, repos, billing.DocumentBill), invoice, billing.FirstVehicleID(lines))
		if err != nil {
			return err
		}
		if err := repos.Bills().Save(ctx, bill); err != nil {
			return err
		}

		payment.AttachBill(bill.ID)
		if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		return repos.SaveEvents(ctx, bill.PendingEvents()...)
	})
	if err != nil {
		return nil, asIntegrity("failed to create bill", err)
	}
	bill.ClearEvents()

	s.logger.Info("bill created",
		zap.String("bill_number", bill.BillNumber),
		zap.String("invoice_id", invoiceID.String()),
	)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// Delete soft-deletes a bill
func (s *BillService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		bill, err := repos.Bills().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := bill.SoftDelete(s.now()); err != nil {
			return err
		}
		if err := repos.Bills().SaveWithLock(ctx, bill); err != nil {
			return err
		}
		return repos.SaveEvents(ctx, bill.PendingEvents()...)
	})
	if err != nil {
		return asIntegrity("failed to delete bill", err)
	}
	s.logger.Info("bill deleted", zap.String("bill_id", id.String()))
	return nil
}

// Restore undoes a soft delete unless the invoice got a new bill meanwhile.
// The restored bill takes the invoice's current amounts and becomes the
// payment's bill again.
func (s *BillService) Restore(ctx context.Context, id uuid.UUID) (*BillResponse, error) {
	var bill *billing.Bill
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		bill, err = repos.Bills().FindByIDIncludingDeleted(ctx, id)
		if err != nil {
			return err
		}
		if !bill.IsDeleted() {
			return shared.NewInvalidStateError("bill is not deleted")
		}
		payment, invoice, err := lockForRebill(ctx, repos, bill.InvoiceID)
		if err != nil {
			return err
		}
		if err := bill.Restore(invoice); err != nil {
			return err
		}
		if err := repos.Bills().SaveWithLock(ctx, bill); err != nil {
			return err
		}
		payment.AttachBill(bill.ID)
		return repos.Payments().SaveWithLock(ctx, payment)
	})
	if err != nil {
		return nil, asIntegrity("failed to restore bill", err)
	}
	s.logger.Info("bill restored",
		zap.String("bill_number", bill.BillNumber),
		zap.String("invoice_id", bill.InvoiceID.String()),
	)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// lockForRebill locks the payment, then the invoice, the same order payments
// use, and fails when the invoice still has a live bill.
func lockForRebill(ctx context.Context, repos TransactionalRepositories, invoiceID uuid.UUID) (*billing.Payment, *billing.Invoice, error) {
	payment, err := repos.Payments().FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if payment, err = repos.Payments().FindByIDForUpdate(ctx, payment.ID); err != nil {
		return nil, nil, err
	}
	invoice, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	exists, err := repos.Bills().ExistsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, billing.ErrBillExists
	}
	return payment, invoice, nil
}
