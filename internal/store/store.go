package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/animewiki/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketStorage = []byte("storage")
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store is closed")

// KVStore implements domain.Storage using BoltDB.
type KVStore struct {
	db     *bolt.DB
	mu     sync.RWMutex // Protects memory cache and closed
	closed bool

	// In-memory cache for hot-path reads (promoted on access).
	// In memory-only mode this is the only copy.
	cache map[string]string
}

// Open opens (or creates) the bolt file at path.
// An empty path selects memory-only mode with no persistence.
func Open(path string) (*KVStore, error) {
	if path == "" {
		return &KVStore{cache: make(map[string]string)}, nil
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStorage)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &KVStore{db: db, cache: make(map[string]string)}, nil
}

// Close releases the bolt file. Later calls fail with ErrClosed.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache = nil
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key.
func (s *KVStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", false, &domain.PersistenceError{Op: "read", Key: key, Err: ErrClosed}
	}
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return v, true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return "", false, nil
	}

	// Cache miss: hold the write lock so promotion cannot race Set or Delete
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, &domain.PersistenceError{Op: "read", Key: key, Err: ErrClosed}
	}
	if v, ok := s.cache[key]; ok {
		return v, true, nil
	}

	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStorage)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, &domain.PersistenceError{Op: "read", Key: key, Err: err}
	}
	if !found {
		return "", false, nil
	}

	// Promote to memory cache
	s.cache[key] = value
	return value, true, nil
}

// Set writes value under key. The bolt transaction commits before Set returns.
func (s *KVStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &domain.PersistenceError{Op: "write", Key: key, Err: ErrClosed}
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketStorage)
			if b == nil {
				return fmt.Errorf("bucket %s missing", bucketStorage)
			}
			return b.Put([]byte(key), []byte(value))
		})
		if err != nil {
			return &domain.PersistenceError{Op: "write", Key: key, Err: err}
		}
	}

	// Cache only after the durable write succeeded
	s.cache[key] = value
	return nil
}

// Delete removes key from the cache and the bolt file.
func (s *KVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &domain.PersistenceError{Op: "delete", Key: key, Err: ErrClosed}
	}

	delete(s.cache, key)

	if s.db == nil {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStorage)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
