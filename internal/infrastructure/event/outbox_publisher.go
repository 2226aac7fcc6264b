package event

import (
	"context"
	"fmt"

	"github.com/transportops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher stages events as outbox rows in the transaction that
// produced them. Delivery is the OutboxProcessor's job.
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// SaveEvents stages events through tx, which must be the *gorm.DB of an
// open transaction. Nothing is written unless every event serializes.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: transaction must be a *gorm.DB, got %T", tx)
	}

	rows := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("outbox: encode %s %s: %w", ev.EventType(), ev.EventID(), err)
		}
		rows[i] = shared.NewOutboxEntry(ev, payload)
	}
	return NewGormOutboxRepository(db).Save(ctx, rows...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
