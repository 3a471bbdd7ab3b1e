package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/finance-notifier/internal/storage"
)

func TestSQLiteDeliveryStore(t *testing.T) {
	db, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := storage.NewSQLiteDeliveryStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("log and list", func(t *testing.T) {
		entry := storage.DeliveryLogEntry{
			RoutingKey: "transaction.created",
			EntityID:   "tx-1",
			Recipient:  "a@b.com",
			Provider:   "smtp",
			Subject:    "Finance Alert - High-Value Transaction",
			Status:     storage.DeliveryStatusSent,
			MessageID:  "<id@host>",
			TraceID:    "trace-1",
			CreatedAt:  now,
		}
		require.NoError(t, store.LogDelivery(ctx, entry))

		list, err := store.ListDeliveries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		got := list[0]
		assert.NotZero(t, got.ID)
		assert.Equal(t, entry.RoutingKey, got.RoutingKey)
		assert.Equal(t, entry.EntityID, got.EntityID)
		assert.Equal(t, entry.Recipient, got.Recipient)
		assert.Equal(t, entry.Status, got.Status)
		assert.Equal(t, entry.MessageID, got.MessageID)
		assert.Equal(t, entry.TraceID, got.TraceID)
	})

	t.Run("newest first", func(t *testing.T) {
		require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{
			RoutingKey: "budget.exceeded",
			Status:     storage.DeliveryStatusFailed,
			Reason:     "not_configured",
			CreatedAt:  now.Add(time.Minute),
		}))

		list, err := store.ListDeliveries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, storage.DeliveryStatusFailed, list[0].Status)
		assert.Equal(t, "not_configured", list[0].Reason)
	})

	t.Run("limit applies", func(t *testing.T) {
		list, err := store.ListDeliveries(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("default limit", func(t *testing.T) {
		list, err := store.ListDeliveries(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("prune before cutoff", func(t *testing.T) {
		require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{
			RoutingKey: "goal.achieved",
			Status:     storage.DeliveryStatusSent,
			CreatedAt:  now.Add(-48 * time.Hour),
		}))

		n, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		list, err := store.ListDeliveries(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestSQLiteDeliveryStore_EmptyListIsNotNil(t *testing.T) {
	db, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	list, err := storage.NewSQLiteDeliveryStore(db).ListDeliveries(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
