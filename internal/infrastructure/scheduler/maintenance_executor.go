package scheduler

import (
	"context"
	"fmt"
	"time"

	appevent "github.com/transportops/backoffice/internal/application/event"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"go.uber.org/zap"
)

// LicenseScanner lists drivers whose license expires within days
type LicenseScanner interface {
	ExpiringLicenses(ctx context.Context, days int) ([]appfleet.ExpiringLicenseResponse, error)
}

// OutboxPurger removes delivered outbox entries older than retention
type OutboxPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// LicenseMetrics records the outcome of a license scan
type LicenseMetrics interface {
	RecordLicenseScan(ctx context.Context, expired, expiring int)
}

// MaintenanceConfig holds parameters for the maintenance jobs
type MaintenanceConfig struct {
	LicenseWarningDays int
	OutboxRetention    time.Duration
}

// MaintenanceExecutor runs license scans and outbox cleanup
type MaintenanceExecutor struct {
	licenses LicenseScanner
	outbox   OutboxPurger
	metrics  LicenseMetrics
	config   MaintenanceConfig
	logger   *zap.Logger
}

// NewMaintenanceExecutor creates a new executor. metrics may be nil.
func NewMaintenanceExecutor(
	licenses LicenseScanner,
	outbox OutboxPurger,
	metrics LicenseMetrics,
	config MaintenanceConfig,
	logger *zap.Logger,
) *MaintenanceExecutor {
	return &MaintenanceExecutor{
		licenses: licenses,
		outbox:   outbox,
		metrics:  metrics,
		config:   config,
		logger:   logger,
	}
}

// Execute dispatches on the job kind
func (e *MaintenanceExecutor) Execute(ctx context.Context, kind JobKind) error {
	switch kind {
	case JobKindLicenseScan:
		return e.scanLicenses(ctx)
	case JobKindOutboxCleanup:
		return e.cleanupOutbox(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobKind, kind)
	}
}

func (e *MaintenanceExecutor) scanLicenses(ctx context.Context) error {
	if e.licenses == nil {
		return nil
	}
	drivers, err := e.licenses.ExpiringLicenses(ctx, e.config.LicenseWarningDays)
	if err != nil {
		return fmt.Errorf("license scan: %w", err)
	}

	expired := 0
	for _, d := range drivers {
		fields := []zap.Field{
			zap.String("driver_id", d.DriverID.String()),
			zap.String("name", d.Name),
			zap.String("license_number", d.LicenseNumber),
			zap.String("license_expiry", d.LicenseExpiry),
			zap.Int("days_remaining", d.DaysRemaining),
		}
		if d.Expired {
			expired++
			e.logger.Warn("driver license expired", fields...)
			continue
		}
		e.logger.Info("driver license expiring", fields...)
	}

	if e.metrics != nil {
		e.metrics.RecordLicenseScan(ctx, expired, len(drivers)-expired)
	}
	e.logger.Info("license scan completed",
		zap.Int("expired", expired),
		zap.Int("expiring", len(drivers)-expired),
		zap.Int("warning_days", e.config.LicenseWarningDays),
	)
	return nil
}

func (e *MaintenanceExecutor) cleanupOutbox(ctx context.Context) error {
	if e.outbox == nil {
		return nil
	}
	if _, err := e.outbox.Purge(ctx, e.config.OutboxRetention); err != nil {
		return fmt.Errorf("outbox cleanup: %w", err)
	}
	return nil
}

var (
	_ JobExecutor    = (*MaintenanceExecutor)(nil)
	_ LicenseScanner = (*appfleet.DriverService)(nil)
	_ OutboxPurger   = (*appevent.OutboxService)(nil)
)
