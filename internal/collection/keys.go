package collection

import (
	"sync"

	"github.com/mmcdole/animewiki/internal/domain"
)

// Storage key prefixes, one key per (user, kind)
const (
	// PrefixAnime is the prefix for anime watchlists (watchlist_{user})
	PrefixAnime = "watchlist_"

	// PrefixManga is the prefix for manga lists (mangalists_{user})
	PrefixManga = "mangalists_"
)

// Key returns the storage key holding the collection for user and kind.
func Key(user domain.UserHandle, kind domain.MediaKind) string {
	if kind == domain.KindManga {
		return PrefixManga + string(user.Normalize())
	}
	return PrefixAnime + string(user.Normalize())
}

// keyedMutex serializes mutations per storage key.
// Entries are reference counted and dropped when no caller holds them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
