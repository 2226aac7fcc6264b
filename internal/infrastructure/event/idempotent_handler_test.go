package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transportops/backoffice/internal/domain/shared"
	"github.com/transportops/backoffice/internal/infrastructure/cache"
	"github.com/transportops/backoffice/tests/testutil"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	inner := testutil.NewMockEventHandler("InvoiceCreated")
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())
	ev := testutil.NewTestEvent("InvoiceCreated")

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 1, inner.HandledCount())
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"InvoiceCreated"}, h.EventTypes())
}

func TestIdempotentHandler_FailureIsRetried(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	inner := testutil.NewMockEventHandler()
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())
	ev := testutil.NewTestEvent("PaymentRecorded")

	inner.SetError(errors.New("broker down"))
	require.Error(t, h.Handle(context.Background(), ev))

	inner.SetError(nil)
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.HandledCount())
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
	assert.Equal(t, int64(1), h.Stats().EventsProcessed)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(mockIdempotencyStore)
	ev := testutil.NewTestEvent("BillCreated")
	key := "event:" + ev.EventID().String()
	store.On("IsProcessed", mock.Anything, key).Return(false, errors.New("redis timeout"))
	store.On("MarkProcessed", mock.Anything, key, 24*time.Hour).Return(true, nil)

	inner := testutil.NewMockEventHandler()
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), ev))
	assert.Equal(t, 1, inner.HandledCount())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(mockIdempotencyStore)
	inner := testutil.NewMockEventHandler()
	h := NewIdempotentHandler(inner, store, shared.IdempotencyConfig{Enabled: false}, zap.NewNop())
	ev := testutil.NewTestEvent("BillCreated")

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.HandledCount())
	store.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}
