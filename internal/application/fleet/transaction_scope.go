package fleet

import (
	"context"

	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// TransactionScope runs trip writes and their outbox events atomically
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction
type TransactionalRepositories interface {
	Trips() fleet.TripRepository
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope runs fn directly against trips. Used by unit tests.
type NoOpTransactionScope struct {
	trips  fleet.TripRepository
	events shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope. events may be nil.
func NewNoOpTransactionScope(trips fleet.TripRepository, events shared.EventPublisher) *NoOpTransactionScope {
	return &NoOpTransactionScope{trips: trips, events: events}
}

// Execute calls fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Trips() fleet.TripRepository { return s.trips }

// SaveEvents publishes directly when a publisher is configured
func (s *NoOpTransactionScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.events == nil || len(events) == 0 {
		return nil
	}
	return s.events.Publish(ctx, events...)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
