package persistence

import (
	"context"

	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// GormFleetTransactionScope implements the fleet TransactionScope with GORM transactions
type GormFleetTransactionScope struct {
	db    *gorm.DB
	saver shared.OutboxEventSaver
}

// NewGormFleetTransactionScope creates a new GormFleetTransactionScope
func NewGormFleetTransactionScope(db *gorm.DB, saver shared.OutboxEventSaver) *GormFleetTransactionScope {
	return &GormFleetTransactionScope{db: db, saver: saver}
}

// Execute runs fn within a database transaction
func (s *GormFleetTransactionScope) Execute(ctx context.Context, fn func(repos appfleet.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormFleetRepositories{tx: tx, saver: s.saver})
	})
}

type gormFleetRepositories struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (r *gormFleetRepositories) Trips() fleet.TripRepository {
	return NewGormTripRepository(r.tx)
}

func (r *gormFleetRepositories) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.saver == nil {
		return nil
	}
	return r.saver.SaveEvents(ctx, r.tx, events...)
}

var (
	_ appfleet.TransactionScope          = (*GormFleetTransactionScope)(nil)
	_ appfleet.TransactionalRepositories = (*gormFleetRepositories)(nil)
)
