package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/log"
	"github.com/mmcdole/animewiki/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStorage wraps a real store and can be told to fail writes or reads.
type flakyStorage struct {
	domain.Storage
	failGet error
	failSet error
	sets    int
}

func (f *flakyStorage) Get(key string) (string, bool, error) {
	if f.failGet != nil {
		return "", false, &domain.PersistenceError{Op: "read", Key: key, Err: f.failGet}
	}
	return f.Storage.Get(key)
}

func (f *flakyStorage) Set(key, value string) error {
	f.sets++
	if f.failSet != nil {
		return &domain.PersistenceError{Op: "write", Key: key, Err: f.failSet}
	}
	return f.Storage.Set(key, value)
}

func newTestStorage(t *testing.T) *flakyStorage {
	t.Helper()
	kv, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return &flakyStorage{Storage: kv}
}

func newTestStore(t *testing.T, fetcher domain.EntryFetcher) (*Store, *flakyStorage) {
	t.Helper()
	storage := newTestStorage(t)
	return NewStore(storage, fetcher, 2, log.NullLogger()), storage
}

func TestStore_AddThenContains(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "5114")
	require.NoError(t, err)

	ok, err := s.Contains(ctx, "alice", domain.KindAnime, "5114")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Remove(ctx, "alice", domain.KindAnime, "5114")
	require.NoError(t, err)

	ok, err = s.Contains(ctx, "alice", domain.KindAnime, "5114")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AddIsIdempotent(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)
	_, err = s.Add(ctx, "alice", domain.KindAnime, "2")
	require.NoError(t, err)

	set, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)

	assert.Equal(t, []domain.MediaID{"1", "2"}, set.IDs)
	assert.Equal(t, 2, storage.sets, "duplicate add must not write")
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)

	set, err := s.Remove(ctx, "alice", domain.KindAnime, "404")
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaID{"1"}, set.IDs)
	assert.Equal(t, 1, storage.sets)

	// Removing from a collection that was never created is fine too
	set, err = s.Remove(ctx, "bob", domain.KindManga, "1")
	require.NoError(t, err)
	assert.Empty(t, set.IDs)
}

func TestStore_ListPreservesInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	for _, id := range []domain.MediaID{"a", "b", "c"} {
		_, err := s.Add(ctx, "alice", domain.KindAnime, id)
		require.NoError(t, err)
	}

	ids, err := s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaID{"a", "b", "c"}, ids)

	_, err = s.Remove(ctx, "alice", domain.KindAnime, "b")
	require.NoError(t, err)

	ids, err = s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaID{"a", "c"}, ids)
}

func TestStore_RemovingLastLeavesEmptySet(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindManga, "2")
	require.NoError(t, err)
	_, err = s.Remove(ctx, "alice", domain.KindManga, "2")
	require.NoError(t, err)

	raw, ok, err := storage.Get("mangalists_alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestStore_Isolation(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)

	tests := []struct {
		name string
		user domain.UserHandle
		kind domain.MediaKind
	}{
		{name: "other kind", user: "alice", kind: domain.KindManga},
		{name: "other user", user: "bob", kind: domain.KindAnime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.Contains(ctx, tt.user, tt.kind, "1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Unauthenticated(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	for _, user := range []domain.UserHandle{"", "   "} {
		_, err := s.Add(ctx, user, domain.KindAnime, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = s.Remove(ctx, user, domain.KindAnime, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = s.Contains(ctx, user, domain.KindAnime, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = s.List(ctx, user, domain.KindAnime)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, _, err = s.Toggle(ctx, user, domain.KindAnime, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = s.Materialize(ctx, user, domain.KindAnime)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	}

	assert.Zero(t, storage.sets, "unauthenticated calls must leave no trace")
	for _, key := range []string{"watchlist_", "watchlist_guest", "watchlist_null"} {
		_, ok, err := storage.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestStore_InvalidArguments(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Add(ctx, "alice", domain.KindAnime, " 1 ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Add(ctx, "alice", domain.MediaKind(7), "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_PersistedFormat(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "5114")
	require.NoError(t, err)

	ids, err := s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaID{"5114"}, ids)

	raw, ok, err := storage.Get("watchlist_alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["5114"]`, raw)
}

func TestStore_CorruptValueReadsAsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.MediaID
	}{
		{name: "not json", raw: "{oops", want: []domain.MediaID{}},
		{name: "object", raw: `{"a":1}`, want: []domain.MediaID{}},
		{name: "null", raw: "null", want: []domain.MediaID{}},
		{name: "numbers", raw: `[5114, "20"]`, want: []domain.MediaID{"5114", "20"}},
		{name: "duplicates", raw: `["1","2","1",""]`, want: []domain.MediaID{"1", "2"}},
		{name: "bools", raw: `[true]`, want: []domain.MediaID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage := newTestStore(t, nil)
			require.NoError(t, storage.Set("watchlist_alice", tt.raw))

			ids, err := s.List(context.Background(), "alice", domain.KindAnime)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)

			_, err = s.Contains(context.Background(), "alice", domain.KindAnime, "1")
			assert.NoError(t, err)
		})
	}
}

func TestStore_WriteFailureSurfaces(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)

	storage.failSet = errors.New("quota exceeded")

	_, err = s.Add(ctx, "alice", domain.KindAnime, "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "write", perr.Op)
	assert.Equal(t, "watchlist_alice", perr.Key)

	_, err = s.Remove(ctx, "alice", domain.KindAnime, "1")
	assert.ErrorIs(t, err, domain.ErrPersistence)

	storage.failSet = nil
	ids, err := s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaID{"1"}, ids, "failed writes must not change the set")
}

func TestStore_ReadFailureReadsAsEmpty(t *testing.T) {
	s, storage := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)

	storage.failGet = errors.New("storage disabled")

	ok, err := s.Contains(ctx, "alice", domain.KindAnime, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_Toggle(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	added, set, err := s.Toggle(ctx, "alice", domain.KindManga, "2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, set.Contains("2"))

	added, set, err = s.Toggle(ctx, "alice", domain.KindManga, "2")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Zero(t, set.Len())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		id := domain.MediaID(string(rune('A' + i%26)))
		go func() {
			_, err := s.Add(ctx, "alice", domain.KindAnime, id)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	ids, err := s.List(ctx, "alice", domain.KindAnime)
	require.NoError(t, err)
	assert.Len(t, ids, 26, "no add may be lost and no id duplicated")
	assert.Zero(t, s.locks.size())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "watchlist_alice", Key("alice", domain.KindAnime))
	assert.Equal(t, "mangalists_alice", Key(" alice ", domain.KindManga))
}
