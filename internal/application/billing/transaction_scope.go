package billing

import (
	"context"

	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// TransactionScope runs billing work in one database transaction.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to billing repositories bound to the
// current transaction.
//
// Lock order for financial writes is payment, invoice, bill. Services that
// lock more than one of these rows must follow it.
type TransactionalRepositories interface {
	TripLines() billing.TripLineReader
	TripLinker() billing.TripLinker
	Invoices() billing.InvoiceRepository
	Bills() billing.BillRepository
	Payments() billing.PaymentRepository
	Ledger() billing.PaymentTransactionRepository
	Sequences() billing.SequenceRepository
	// SaveEvents writes events to the outbox inside the transaction
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
	// Savepoint runs fn in a nested transaction. An error rolls back only
	// fn's writes; the outer transaction stays usable.
	Savepoint(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// Repositories bundles the plain repositories used by NoOpTransactionScope
type Repositories struct {
	TripLines  billing.TripLineReader
	TripLinker billing.TripLinker
	Invoices   billing.InvoiceRepository
	Bills      billing.BillRepository
	Payments   billing.PaymentRepository
	Ledger     billing.PaymentTransactionRepository
	Sequences  billing.SequenceRepository
	Events     shared.EventPublisher
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used by unit tests with mocked repositories.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute calls fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) TripLines() billing.TripLineReader { return s.repos.TripLines }
func (s *NoOpTransactionScope) TripLinker() billing.TripLinker { return s.repos.TripLinker }
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository { return s.repos.Invoices }
func (s *NoOpTransactionScope) Bills() billing.BillRepository { return s.repos.Bills }
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository { return s.repos.Payments }
func (s *NoOpTransactionScope) Ledger() billing.PaymentTransactionRepository { return s.repos.Ledger }
func (s *NoOpTransactionScope) Sequences() billing.SequenceRepository { return s.repos.Sequences }

// SaveEvents publishes directly when a publisher is configured
func (s *NoOpTransactionScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.repos.Events == nil || len(events) == 0 {
		return nil
	}
	return s.repos.Events.Publish(ctx, events...)
}

// Savepoint calls fn directly
func (s *NoOpTransactionScope) Savepoint(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
