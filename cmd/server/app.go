package main

import (
	"context"
	"fmt"
	"time"

	appbilling "github.com/transportops/backoffice/internal/application/billing"
	appevent "github.com/transportops/backoffice/internal/application/event"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"github.com/transportops/backoffice/internal/infrastructure/cache"
	"github.com/transportops/backoffice/internal/infrastructure/config"
	"github.com/transportops/backoffice/internal/infrastructure/event"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"github.com/transportops/backoffice/internal/infrastructure/persistence"
	"github.com/transportops/backoffice/internal/infrastructure/scheduler"
	"github.com/transportops/backoffice/internal/infrastructure/telemetry"
	"github.com/transportops/backoffice/internal/interfaces/http/handler"
	"github.com/transportops/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const meterName = "github.com/transportops/backoffice"

// app owns every long-lived component of the server process
type app struct {
	log    *zap.Logger
	engine *router.Engine

	db        *persistence.Database
	store     shared.IdempotencyStore
	tracer    *telemetry.TracerProvider
	meter     *telemetry.MeterProvider
	profiler  *telemetry.Profiler
	bus       *event.InMemoryEventBus
	outbox    *event.OutboxProcessor
	forwarder *event.KafkaForwarder
	scheduler *scheduler.Scheduler
	trigger   *scheduler.PeriodicTrigger
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{log: log}
	var err error

	a.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	a.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	a.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiler.Enabled,
		ServerAddress:   cfg.Profiler.ServerAddress,
		ApplicationName: cfg.Profiler.ApplicationName,
		Tags:            map[string]string{"env": cfg.App.Env},
	}, log)
	if err != nil {
		return nil, err
	}
	if a.profiler.IsEnabled() {
		a.tracer.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	a.db, err = persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	if err := telemetry.RegisterDBTracing(a.db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		return nil, err
	}
	log.Info("Database connected successfully")

	a.store, err = cache.NewIdempotencyStore(ctx, cfg.Redis, !cfg.IsProduction(), log)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid billing timezone %q: %w", cfg.Billing.Timezone, err)
	}
	settings := appbilling.Settings{
		InvoicePrefix:  cfg.Billing.InvoicePrefix,
		BillPrefix:     cfg.Billing.BillPrefix,
		DueDays:        cfg.Billing.DueDays,
		Location:       loc,
		IdempotencyTTL: cfg.Billing.IdempotencyTTL,
	}

	db := a.db.DB
	serializer := event.NewEventSerializer()
	publisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db)

	clientRepo := persistence.NewGormClientRepository(db)
	driverRepo := persistence.NewGormDriverRepository(db)
	vehicleRepo := persistence.NewGormVehicleRepository(db)
	tripRepo := persistence.NewGormTripRepository(db)
	fleetScope := persistence.NewGormFleetTransactionScope(db, publisher)
	billingScope := persistence.NewGormBillingTransactionScope(db, publisher)

	clients := appfleet.NewClientService(clientRepo, log)
	drivers := appfleet.NewDriverService(driverRepo, loc, log)
	vehicles := appfleet.NewVehicleService(vehicleRepo, driverRepo, clientRepo, log)
	trips := appfleet.NewTripService(fleetScope, tripRepo, clientRepo, driverRepo, vehicleRepo, log)

	numbers := appbilling.NewNumberService(billingScope, settings, log)
	invoices := appbilling.NewInvoiceService(billingScope, persistence.NewGormInvoiceRepository(db), tripRepo,
		clientRepo, numbers, settings, log)
	bills := appbilling.NewBillService(billingScope, persistence.NewGormBillRepository(db), numbers, log)
	payments := appbilling.NewPaymentService(billingScope, persistence.NewGormPaymentRepository(db),
		persistence.NewGormPaymentTransactionRepository(db), a.store, settings, log)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	metrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:       a.meter.Meter(meterName),
		Logger:      log,
		Receivables: telemetry.NewGormReceivablesProvider(db),
		Now:         func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		return nil, err
	}
	numbers.SetMetrics(metrics)
	invoices.SetMetrics(metrics)
	payments.SetMetrics(metrics)

	// Outbox entries are replayed onto the in-process bus; Kafka is one subscriber
	a.bus = event.NewInMemoryEventBus(log)
	a.bus.Subscribe(event.NewLoggingHandler(log))
	if cfg.Event.KafkaEnabled {
		a.forwarder = event.NewKafkaForwarder(event.NewKafkaWriter(cfg.Event.KafkaBrokers, cfg.Event.KafkaTopic), serializer, log)
		a.bus.Subscribe(event.NewIdempotentHandler(a.forwarder, a.store, shared.DefaultIdempotencyConfig(), log))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Event.KafkaBrokers),
			zap.String("topic", cfg.Event.KafkaTopic),
		)
	}
	if cfg.Event.ProcessorEnabled {
		a.outbox = event.NewOutboxProcessor(outboxRepo, a.bus, serializer, event.OutboxProcessorConfig{
			BatchSize:    cfg.Event.BatchSize,
			PollInterval: cfg.Event.PollInterval,
		}, log)
	}

	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		if cfg.Scheduler.JobTimeout > 0 {
			schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
		}
		executor := scheduler.NewMaintenanceExecutor(drivers, outboxService, metrics, scheduler.MaintenanceConfig{
			LicenseWarningDays: cfg.Scheduler.LicenseWarningDays,
			OutboxRetention:    cfg.Event.CleanupRetention,
		}, log)
		a.scheduler = scheduler.NewScheduler(schedCfg, executor, log)

		jobs := []scheduler.PeriodicJob{
			{Kind: scheduler.JobKindLicenseScan, Interval: cfg.Scheduler.LicenseScanInterval, RunOnStart: true},
		}
		if cfg.Event.CleanupEnabled {
			jobs = append(jobs, scheduler.PeriodicJob{Kind: scheduler.JobKindOutboxCleanup, Interval: cfg.Event.CleanupInterval})
		}
		a.trigger = scheduler.NewPeriodicTrigger(a.scheduler, log, jobs...)
	}

	a.engine, err = router.NewEngine(router.EngineOptions{
		Logger:           log,
		HTTP:             cfg.HTTP,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   a.tracer.IsEnabled(),
		Meter:            a.meter.Meter(meterName),
		ProfilingEnabled: a.profiler.IsEnabled(),
	}, router.Handlers{
		Clients:  handler.NewClientHandler(clients),
		Drivers:  handler.NewDriverHandler(drivers),
		Vehicles: handler.NewVehicleHandler(vehicles),
		Trips:    handler.NewTripHandler(trips),
		Invoices: handler.NewInvoiceHandler(invoices, bills, payments),
		Bills:    handler.NewBillHandler(bills),
		Payments: handler.NewPaymentHandler(payments),
		Numbers:  handler.NewNumberHandler(numbers),
		Health:   handler.NewHealthHandler(a.db, outboxService, version),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) start(ctx context.Context) error {
	if a.outbox != nil {
		if err := a.outbox.Start(ctx); err != nil {
			return err
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		if err := a.trigger.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// stop shuts components down in reverse dependency order
func (a *app) stop(ctx context.Context) {
	if a.trigger != nil {
		a.logIf("stop periodic trigger", a.trigger.Stop(ctx))
		a.logIf("stop scheduler", a.scheduler.Stop(ctx))
	}
	if a.outbox != nil {
		a.logIf("stop outbox processor", a.outbox.Stop(ctx))
	}
	if a.forwarder != nil {
		a.logIf("close kafka writer", a.forwarder.Close())
	}
	a.engine.Close()
	a.logIf("close idempotency store", a.store.Close())
	a.logIf("close database", a.db.Close())
	a.logIf("stop profiler", a.profiler.Stop())
	a.logIf("flush metrics", a.meter.Shutdown(ctx))
	a.logIf("flush traces", a.tracer.Shutdown(ctx))
}

func (a *app) logIf(what string, err error) {
	if err != nil {
		a.log.Error("Failed to "+what, zap.Error(err))
	}
}
