package domain

import "context"

// Storage is a synchronous key/value string store local to this machine.
// Failures are returned as *PersistenceError.
type Storage interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(key string) (value string, ok bool, err error)

	// Set durably writes value before returning
	Set(key, value string) error

	// Delete removes key; deleting an absent key is not an error
	Delete(key string) error

	Close() error
}

// EntryFetcher resolves one identifier into a full catalog record.
type EntryFetcher interface {
	FetchEntry(ctx context.Context, kind MediaKind, id MediaID) (*Entry, error)
}
