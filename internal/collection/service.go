// Package collection keeps per-user watchlists of catalog identifiers and
// resolves them against the remote catalog for display.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/animewiki/internal/domain"
)

const defaultWorkers = 3

// Set is the ordered, duplicate-free list of ids a user saved for one kind.
type Set struct {
	User domain.UserHandle
	Kind domain.MediaKind
	IDs  []domain.MediaID
}

// Len returns the number of saved ids
func (s Set) Len() int { return len(s.IDs) }

// Contains reports whether id is saved
func (s Set) Contains(id domain.MediaID) bool {
	return slices.Contains(s.IDs, id)
}

// Store reads and mutates collections in local storage and materializes
// them through the catalog fetcher.
type Store struct {
	storage domain.Storage
	fetcher domain.EntryFetcher
	workers int
	locks   *keyedMutex
	logger  *slog.Logger
}

// NewStore creates a collection store. workers bounds concurrent fetches
// during Materialize; values below 1 use the default.
func NewStore(storage domain.Storage, fetcher domain.EntryFetcher, workers int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Store{
		storage: storage,
		fetcher: fetcher,
		workers: workers,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// Contains reports whether id is in the user's collection for kind.
// Unreadable storage counts as an empty collection.
func (s *Store) Contains(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (bool, error) {
	if err := validateItem(user, kind, id); err != nil {
		return false, err
	}
	ids := s.readOrEmpty(user, kind)
	return slices.Contains(ids, id), nil
}

// List returns the saved ids in insertion order. It never contacts the catalog.
func (s *Store) List(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) ([]domain.MediaID, error) {
	if err := validate(user, kind); err != nil {
		return nil, err
	}
	return s.readOrEmpty(user, kind), nil
}

// Add appends id to the collection. Adding an existing id returns the
// unchanged set without writing.
func (s *Store) Add(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (Set, error) {
	if err := validateItem(user, kind, id); err != nil {
		return Set{}, err
	}
	user = user.Normalize()

	unlock := s.locks.Lock(Key(user, kind))
	defer unlock()

	ids := s.readOrEmpty(user, kind)
	if slices.Contains(ids, id) {
		return Set{User: user, Kind: kind, IDs: ids}, nil
	}

	ids = append(ids, id)
	if err := s.write(user, kind, ids); err != nil {
		return Set{}, err
	}

	s.logger.Info("added to collection", "user", user, "kind", kind, "id", id, "count", len(ids))
	return Set{User: user, Kind: kind, IDs: ids}, nil
}

// Remove drops id from the collection. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (Set, error) {
	if err := validateItem(user, kind, id); err != nil {
		return Set{}, err
	}
	user = user.Normalize()

	unlock := s.locks.Lock(Key(user, kind))
	defer unlock()

	ids := s.readOrEmpty(user, kind)
	if !slices.Contains(ids, id) {
		return Set{User: user, Kind: kind, IDs: ids}, nil
	}

	filtered := slices.DeleteFunc(slices.Clone(ids), func(v domain.MediaID) bool { return v == id })
	if err := s.write(user, kind, filtered); err != nil {
		return Set{}, err
	}

	s.logger.Info("removed from collection", "user", user, "kind", kind, "id", id, "count", len(filtered))
	return Set{User: user, Kind: kind, IDs: filtered}, nil
}

// Toggle adds id when absent and removes it when present.
func (s *Store) Toggle(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (bool, Set, error) {
	if err := validateItem(user, kind, id); err != nil {
		return false, Set{}, err
	}
	user = user.Normalize()

	unlock := s.locks.Lock(Key(user, kind))
	defer unlock()

	ids := s.readOrEmpty(user, kind)
	added := !slices.Contains(ids, id)
	if added {
		ids = append(ids, id)
	} else {
		ids = slices.DeleteFunc(slices.Clone(ids), func(v domain.MediaID) bool { return v == id })
	}

	if err := s.write(user, kind, ids); err != nil {
		return false, Set{}, err
	}

	s.logger.Info("toggled collection entry", "user", user, "kind", kind, "id", id, "added", added)
	return added, Set{User: user, Kind: kind, IDs: ids}, nil
}

// validate rejects anonymous users and unknown kinds
func validate(user domain.UserHandle, kind domain.MediaKind) error {
	if user.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown media kind %d", domain.ErrInvalidInput, int(kind))
	}
	return nil
}

// validateItem additionally requires a non-empty, trimmed id
func validateItem(user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) error {
	if err := validate(user, kind); err != nil {
		return err
	}
	if id == "" || strings.TrimSpace(string(id)) != string(id) {
		return fmt.Errorf("%w: media id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// readOrEmpty loads the collection, logging and discarding read failures.
func (s *Store) readOrEmpty(user domain.UserHandle, kind domain.MediaKind) []domain.MediaID {
	ids, err := s.read(user, kind)
	if err != nil {
		s.logger.Warn("unreadable collection, treating as empty", "key", Key(user, kind), "error", err)
		return []domain.MediaID{}
	}
	return ids
}

func (s *Store) read(user domain.UserHandle, kind domain.MediaKind) ([]domain.MediaID, error) {
	key := Key(user, kind)
	raw, ok, err := s.storage.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.MediaID{}, nil
	}
	return decodeIDs(key, raw)
}

func (s *Store) write(user domain.UserHandle, kind domain.MediaKind, ids []domain.MediaID) error {
	key := Key(user, kind)
	data, err := encodeIDs(ids)
	if err != nil {
		return &domain.PersistenceError{Op: "encode", Key: key, Err: err}
	}
	if err := s.storage.Set(key, data); err != nil {
		s.logger.Error("failed to persist collection", "key", key, "error", err)
		return err
	}
	return nil
}

// encodeIDs renders ids as a JSON array of strings; an empty set is "[]".
func encodeIDs(ids []domain.MediaID) (string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeIDs parses a stored JSON array. Numeric ids are accepted and
// converted to strings; blanks and duplicates are dropped keeping the
// first occurrence.
func decodeIDs(key, raw string) ([]domain.MediaID, error) {
	if raw == "" || raw == "null" {
		return []domain.MediaID{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, &domain.PersistenceError{Op: "decode", Key: key, Err: err}
	}

	ids := make([]domain.MediaID, 0, len(elems))
	for _, elem := range elems {
		id, err := decodeID(elem)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "decode", Key: key, Err: err}
		}
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeID(elem json.RawMessage) (domain.MediaID, error) {
	var str string
	if err := json.Unmarshal(elem, &str); err == nil {
		id, _ := domain.ParseMediaID(str)
		return id, nil
	}
	var num json.Number
	if err := json.Unmarshal(elem, &num); err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(num.String(), 10, 64); err != nil {
		return "", err
	}
	return domain.MediaID(num.String()), nil
}
