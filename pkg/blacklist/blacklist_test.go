package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	ok, err := store.Contains(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, Entry{UserID: "user-1", Reason: "spam"}))

	ok, err = store.Contains(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Remove(ctx, "user-1"))
	require.NoError(t, store.Remove(ctx, "user-1"), "removal is idempotent")

	ok, err = store.Contains(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Add(ctx, Entry{UserID: "old", CreatedAt: base}))
	require.NoError(t, store.Add(ctx, Entry{UserID: "new", CreatedAt: base.Add(time.Hour)}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].UserID)
	assert.Equal(t, "old", entries[1].UserID)
}

func TestMemory_ReAddUpdatesReason(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Add(ctx, Entry{UserID: "user-1", Reason: "spam"}))
	require.NoError(t, store.Add(ctx, Entry{UserID: "user-1", Reason: "abuse"}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abuse", entries[0].Reason)
}
