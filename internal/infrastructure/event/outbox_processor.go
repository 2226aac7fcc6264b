package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:    100,
		PollInterval: 5 * time.Second,
	}
}

// OutboxProcessor polls outbox_events and publishes rows to the event bus.
// Rows whose handlers fail are retried with backoff until they go DEAD.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// BatchResult counts what one polling pass did
type BatchResult struct {
	Claimed int
	Sent    int
	Failed  int
	Dead    int
}

func (r *BatchResult) add(o BatchResult) {
	r.Claimed += o.Claimed
	r.Sent += o.Sent
	r.Failed += o.Failed
	r.Dead += o.Dead
}

// maxDrainPasses bounds the passes of one Drain call
const maxDrainPasses = 20

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	def := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start drains the backlog left by the previous run, then polls
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Drain(ctx)

		ticker := time.NewTicker(p.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Drain(ctx)
			}
		}
	}()

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loop and waits for the current batch to finish
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs passes until one claims less than a full batch
func (p *OutboxProcessor) Drain(ctx context.Context) BatchResult {
	var total BatchResult
	for i := 0; i < maxDrainPasses && ctx.Err() == nil; i++ {
		r := p.ProcessOnce(ctx)
		total.add(r)
		if r.Claimed < p.config.BatchSize {
			break
		}
	}
	if total.Claimed > 0 {
		p.logger.Info("outbox drained",
			zap.Int("sent", total.Sent),
			zap.Int("failed", total.Failed),
			zap.Int("dead", total.Dead),
		)
	}
	return total
}

// ProcessOnce delivers one batch of new rows and one batch of rows due for retry
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) BatchResult {
	var res BatchResult

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending outbox entries", zap.Error(err))
		return res
	}
	res.add(p.deliver(ctx, pending))

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable outbox entries", zap.Error(err))
		return res
	}
	res.add(p.deliver(ctx, retryable))
	return res
}

func (p *OutboxProcessor) deliver(ctx context.Context, entries []*shared.OutboxEntry) BatchResult {
	var res BatchResult
	if len(entries) == 0 {
		return res
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to claim outbox entries", zap.Error(err))
		return res
	}
	res.Claimed = len(claimed)
	for _, entry := range claimed {
		switch p.deliverOne(ctx, entry) {
		case shared.OutboxStatusSent:
			res.Sent++
		case shared.OutboxStatusDead:
			res.Dead++
		default:
			res.Failed++
		}
	}
	return res
}

// deliverOne publishes one row and returns the state it was left in
func (p *OutboxProcessor) deliverOne(ctx context.Context, entry *shared.OutboxEntry) shared.OutboxStatus {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)

	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}
	if err == nil {
		entry.MarkSent()
	} else {
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("giving up on outbox entry", zap.Int("attempts", entry.RetryCount), zap.String("last_error", entry.LastError))
		} else {
			log.Error("outbox delivery failed", zap.Int("attempts", entry.RetryCount), zap.Time("next_retry_at", *entry.NextRetryAt), zap.Error(err))
		}
	}

	if uerr := p.repo.Update(ctx, entry); uerr != nil {
		// TODO: reclaim rows left in PROCESSING by a failed update or a crash
		log.Error("failed to record outbox delivery state", zap.String("status", string(entry.Status)), zap.Error(uerr))
		return shared.OutboxStatusFailed
	}
	return entry.Status
}
