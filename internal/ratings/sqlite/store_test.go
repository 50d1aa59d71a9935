package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SubmitAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ratings.db")

	store, err := Open(path)
	require.NoError(t, err)

	avg, err := store.Submit(ctx, "Es Teh", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)

	avg, err = store.Submit(ctx, "Es Teh", 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	_, err = store.Submit(ctx, "Kopi Susu", -1)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	agg, ok, err := reopened.Get(ctx, "Es Teh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), agg.Total)
	assert.Equal(t, int64(2), agg.Count)

	_, ok, err = reopened.Get(ctx, "Mie Rebus")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := reopened.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, -1.0, all["Kopi Susu"].Average())
}

func TestStore_RejectsBlankProduct(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Submit(context.Background(), "", 5)
	assert.Error(t, err)
}
