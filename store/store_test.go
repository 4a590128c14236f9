package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/c360studio/docsentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "docsentinel-store-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, dir
}

func TestOpenRunsMigrations(t *testing.T) {
	s, _ := setupTestStore(t)
	require.FileExists(t, s.Path())
}

func TestOpenTwiceFromSameProcessFails(t *testing.T) {
	dir, err := os.MkdirTemp("", "docsentinel-store-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	first, err := store.Open(dir)
	require.NoError(t, err)
	defer first.Close()

	_, err = store.Open(dir)
	require.Error(t, err)
	var lockErr *store.ErrWriteLockHeld
	assert.ErrorAs(t, err, &lockErr)
}

func TestOpenSucceedsAfterClose(t *testing.T) {
	dir, err := os.MkdirTemp("", "docsentinel-store-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	first, err := store.Open(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := store.Open(dir)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestLastScanToEmptyBeforeAnyScan(t *testing.T) {
	s, _ := setupTestStore(t)
	rev, err := s.LastScanTo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rev)
}

func TestSettingRoundTrip(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Setting(ctx, "similarity_threshold")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, "similarity_threshold", "0.7"))

	value, ok, err := s.Setting(ctx, "similarity_threshold")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.7", value)
}
