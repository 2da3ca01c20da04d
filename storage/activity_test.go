package storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateLastActivity(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, UpdateLastActivity(ctx, store))

	at, found, err := LastActivity(ctx, store)
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, before, at, time.Second)

	// The raw value is a bare epoch-milliseconds JSON number.
	raw, err := store.GetStringContext(ctx, KeyLastActivity)
	require.NoError(t, err)
	ms, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), ms)
}

func TestLastActivity_Missing(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	_, found, err := LastActivity(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLastActivity_CorruptValue(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)
	ctx := context.Background()

	require.NoError(t, store.SetContext(ctx, KeyLastActivity, "not-a-number"))

	_, found, err := LastActivity(ctx, store)
	require.NoError(t, err)
	assert.False(t, found)
}
