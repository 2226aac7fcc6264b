// Package event holds application services over the event outbox.
package event

import (
	"context"
	"time"

	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxService reports the delivery backlog of invoice, bill, payment and
// trip events and trims delivered rows
type OutboxService struct {
	repo   shared.OutboxRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, now: time.Now, logger: logger}
}

// OutboxBacklog counts outbox rows per delivery state
type OutboxBacklog struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// Undelivered is the number of rows still owed to subscribers
func (b OutboxBacklog) Undelivered() int64 {
	return b.Pending + b.Processing + b.Failed
}

// NeedsAttention reports rows that will not be retried any more
func (b OutboxBacklog) NeedsAttention() bool {
	return b.Dead > 0
}

// Backlog reads the per-state row counts
func (s *OutboxService) Backlog(ctx context.Context) (*OutboxBacklog, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count outbox rows", zap.Error(err))
		return nil, err
	}
	b := &OutboxBacklog{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	if b.NeedsAttention() {
		s.logger.Warn("outbox has undeliverable events", zap.Int64("dead", b.Dead))
	}
	return b, nil
}

// Purge deletes rows delivered more than retention ago
func (s *OutboxService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, shared.NewValidationError("retention must be positive")
	}
	cutoff := s.now().Add(-retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("purged delivered outbox rows", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
