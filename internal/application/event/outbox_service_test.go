package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

func TestOutboxService_Backlog(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepository)
	repo.On("CountByStatus", ctx).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 3,
		shared.OutboxStatusSent:    10,
		shared.OutboxStatusDead:    1,
	}, nil)

	backlog, err := NewOutboxService(repo, zap.NewNop()).Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, &OutboxBacklog{Pending: 3, Sent: 10, Dead: 1}, backlog)
	assert.Equal(t, int64(3), backlog.Undelivered())
	assert.True(t, backlog.NeedsAttention())
}

func TestOutboxService_BacklogError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepository)
	repo.On("CountByStatus", ctx).Return(nil, errors.New("db down"))

	_, err := NewOutboxService(repo, zap.NewNop()).Backlog(ctx)
	assert.EqualError(t, err, "db down")
}

func TestOutboxService_Purge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	repo := new(mockOutboxRepository)
	repo.On("DeleteOlderThan", ctx, now.Add(-72*time.Hour)).Return(int64(4), nil)

	svc := NewOutboxService(repo, zap.NewNop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.Purge(ctx, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	_, err = svc.Purge(ctx, 0)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
	repo.AssertNumberOfCalls(t, "DeleteOlderThan", 1)
}
