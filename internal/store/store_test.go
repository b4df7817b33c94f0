package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *KVStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "animewiki.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKVStore_SetGet(t *testing.T) {
	for _, tc := range []struct {
		name string
		open func(t *testing.T) *KVStore
	}{
		{name: "bolt", open: setupTestStore},
		{name: "memory", open: func(t *testing.T) *KVStore {
			s, err := Open("")
			require.NoError(t, err)
			return s
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.open(t)

			_, ok, err := s.Get("watchlist_alice")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("watchlist_alice", `["5114"]`))

			v, ok, err := s.Get("watchlist_alice")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `["5114"]`, v)

			require.NoError(t, s.Delete("watchlist_alice"))
			_, ok, err = s.Get("watchlist_alice")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting again is fine
			assert.NoError(t, s.Delete("watchlist_alice"))
		})
	}
}

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "animewiki.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("user", "alice"))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestKVStore_ClosedReturnsPersistenceError(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Close())

	_, _, err := s.Get("k")
	assertClosed(t, err, "read")

	err = s.Set("k", "v")
	assertClosed(t, err, "write")

	err = s.Delete("k")
	assertClosed(t, err, "delete")

	// Double close is a no-op
	assert.NoError(t, s.Close())
}

func assertClosed(t *testing.T, err error, op string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.True(t, errors.Is(err, ErrClosed))

	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, op, perr.Op)
	assert.Equal(t, "k", perr.Key)
}
