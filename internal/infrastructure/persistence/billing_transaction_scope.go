package persistence

import (
	"context"

	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBillingTransactionScope implements the billing TransactionScope with GORM
// transactions. Events are written to the outbox through saver using the same
// transaction handle.
type GormBillingTransactionScope struct {
	db    *gorm.DB
	saver shared.OutboxEventSaver
}

// NewGormBillingTransactionScope creates a new GormBillingTransactionScope
func NewGormBillingTransactionScope(db *gorm.DB, saver shared.OutboxEventSaver) *GormBillingTransactionScope {
	return &GormBillingTransactionScope{db: db, saver: saver}
}

// Execute runs fn within a database transaction
func (s *GormBillingTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBillingRepositories{tx: tx, saver: s.saver})
	})
}

type gormBillingRepositories struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (r *gormBillingRepositories) TripLines() billing.TripLineReader {
	return NewGormTripRepository(r.tx)
}

func (r *gormBillingRepositories) TripLinker() billing.TripLinker {
	return NewGormTripRepository(r.tx)
}

func (r *gormBillingRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormBillingRepositories) Bills() billing.BillRepository {
	return NewGormBillRepository(r.tx)
}

func (r *gormBillingRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormBillingRepositories) Ledger() billing.PaymentTransactionRepository {
	return NewGormPaymentTransactionRepository(r.tx)
}

func (r *gormBillingRepositories) Sequences() billing.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

func (r *gormBillingRepositories) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.saver == nil {
		return nil
	}
	return r.saver.SaveEvents(ctx, r.tx, events...)
}

// Savepoint relies on GORM turning a nested Transaction into SAVEPOINT / ROLLBACK TO
func (r *gormBillingRepositories) Savepoint(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return fn(&gormBillingRepositories{tx: sp, saver: r.saver})
	})
}

var (
	_ appbilling.TransactionScope          = (*GormBillingTransactionScope)(nil)
	_ appbilling.TransactionalRepositories = (*gormBillingRepositories)(nil)
)
