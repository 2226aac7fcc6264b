package main

import (
	"context"
	"fmt"
	"time"

	appbilling "github.com/transportops/backoffice/internal/application/billing"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/infrastructure/config"
	"github.com/transportops/backoffice/internal/infrastructure/event"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"github.com/transportops/backoffice/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// backend is the set of services the commands read from
type backend struct {
	numbers  *appbilling.NumberService
	invoices *appbilling.InvoiceService
	drivers  *appfleet.DriverService
	close    func() error
}

// backendFactory opens a backend; commands that need no database never call it
type backendFactory func(ctx context.Context, log *zap.Logger) (*backend, error)

func newBackend(db *gorm.DB, settings appbilling.Settings, log *zap.Logger) *backend {
	publisher := event.NewOutboxPublisher(event.NewEventSerializer())
	scope := persistence.NewGormBillingTransactionScope(db, publisher)
	numbers := appbilling.NewNumberService(scope, settings, log)
	return &backend{
		numbers: numbers,
		invoices: appbilling.NewInvoiceService(scope, persistence.NewGormInvoiceRepository(db),
			persistence.NewGormTripRepository(db), persistence.NewGormClientRepository(db), numbers, settings, log),
		drivers: appfleet.NewDriverService(persistence.NewGormDriverRepository(db), settings.Location, log),
		close:   func() error { return nil },
	}
}

func openPostgres(_ context.Context, log *zap.Logger) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid billing timezone %q: %w", cfg.Billing.Timezone, err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.GormLevel("warn"), time.Second))
	if err != nil {
		return nil, err
	}

	b := newBackend(db.DB, appbilling.Settings{
		InvoicePrefix:  cfg.Billing.InvoicePrefix,
		BillPrefix:     cfg.Billing.BillPrefix,
		DueDays:        cfg.Billing.DueDays,
		Location:       loc,
		IdempotencyTTL: cfg.Billing.IdempotencyTTL,
	}, log)
	b.close = db.Close
	return b, nil
}
