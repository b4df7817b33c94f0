package collection

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/mmcdole/animewiki/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of resolving one collection id.
// Exactly one of Entry and Err is set; Err is always a *domain.FetchError.
type Result struct {
	Entry *domain.Entry
	Err   error
}

// Sequence yields each collection id with its Result, in collection order
type Sequence = iter.Seq2[domain.MediaID, Result]

// Item pairs a collection id with its Result
type Item struct {
	ID domain.MediaID
	Result
}

// Materialize resolves every saved id through the catalog fetcher.
//
// Fetches run concurrently, bounded by the store's worker count, and the
// sequence yields results in insertion order regardless of arrival order.
// A failed fetch is yielded as a FetchError and does not stop the others.
// The sequence can be ranged over once; later ranges yield nothing.
// Stopping early or cancelling ctx abandons in-flight fetches.
func (s *Store) Materialize(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) (Sequence, error) {
	if err := validate(user, kind); err != nil {
		return nil, err
	}
	ids := s.readOrEmpty(user, kind)

	var used atomic.Bool
	return func(yield func(domain.MediaID, Result) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		s.materialize(ctx, kind, ids, yield)
	}, nil
}

func (s *Store) materialize(ctx context.Context, kind domain.MediaKind, ids []domain.MediaID, yield func(domain.MediaID, Result) bool) {
	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	// One buffered slot per id so workers never block on a departed consumer
	slots := make([]chan Result, len(ids))
	for i := range slots {
		slots[i] = make(chan Result, 1)
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				slots[i] <- s.fetchOne(ctx, kind, id)
				return nil
			})
		}
		g.Wait()
	}()

	var failed int
	for i, id := range ids {
		var r Result
		select {
		case r = <-slots[i]:
		default:
			// A finished fetch wins over a cancellation that raced it
			select {
			case r = <-slots[i]:
			case <-ctx.Done():
				r = Result{Err: &domain.FetchError{Kind: kind, ID: id, Err: ctx.Err()}}
			}
		}
		if r.Err != nil {
			failed++
		}
		if !yield(id, r) {
			s.logger.Debug("materialize abandoned", "kind", kind, "delivered", i+1, "total", len(ids))
			return
		}
	}

	s.logger.Debug("materialized collection",
		"kind", kind,
		"count", len(ids),
		"failed", failed,
		"elapsed", time.Since(start),
	)
}

func (s *Store) fetchOne(ctx context.Context, kind domain.MediaKind, id domain.MediaID) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: &domain.FetchError{Kind: kind, ID: id, Err: err}}
	}

	entry, err := s.fetcher.FetchEntry(ctx, kind, id)
	if err == nil && entry == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		s.logger.Warn("failed to materialize entry", "kind", kind, "id", id, "error", err)
		return Result{Err: &domain.FetchError{Kind: kind, ID: id, Err: err}}
	}

	// Key the payload by the id that was requested
	entry.ID = id
	entry.Kind = kind
	return Result{Entry: entry}
}

// Collect drains a materialization into a slice, preserving order.
func Collect(seq Sequence) []Item {
	var items []Item
	for id, r := range seq {
		items = append(items, Item{ID: id, Result: r})
	}
	return items
}

// Partition splits items into resolved entries and failures.
func Partition(items []Item) (entries []domain.Entry, failed []Item) {
	for _, it := range items {
		if it.Err != nil {
			failed = append(failed, it)
			continue
		}
		entries = append(entries, *it.Entry)
	}
	return entries, failed
}
