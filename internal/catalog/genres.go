package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mmcdole/animewiki/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Storage keys for the genre cache
const (
	KeyAnimeGenres = "animewiki_genres"
	KeyMangaGenres = "animewiki_manga_genres"
)

// genreFilters are merged into one tag list
var genreFilters = []string{"", "themes", "demographics"}

// GenreKey returns the storage key holding the cached genre list for kind
func GenreKey(kind domain.MediaKind) string {
	if kind == domain.KindManga {
		return KeyMangaGenres
	}
	return KeyAnimeGenres
}

// Genres returns genres, themes and demographics for kind merged into one
// list sorted by name. The list is cached in storage after the first load.
func (s *Service) Genres(ctx context.Context, kind domain.MediaKind) ([]domain.Genre, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidInput
	}
	key := GenreKey(kind)

	if cached, ok := s.cachedGenres(key); ok {
		s.logger.Debug("cache hit", "key", key)
		return cached, nil
	}

	groups := make([][]domain.Genre, len(genreFilters))
	errs := make([]error, len(genreFilters))

	var g errgroup.Group
	for i, filter := range genreFilters {
		g.Go(func() error {
			groups[i], errs[i] = s.source.Genres(ctx, kind, filter)
			if errs[i] != nil {
				s.logger.Warn("failed to load genre group", "kind", kind, "filter", filter, "error", errs[i])
			}
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var loaded int
	for _, err := range errs {
		if err == nil {
			loaded++
		}
	}
	if loaded == 0 {
		return nil, fmt.Errorf("load genres: %w", errors.Join(errs...))
	}

	genres := mergeGenres(groups...)

	// Only a complete list is worth caching
	if loaded == len(genreFilters) {
		s.storeGenres(key, genres)
	}

	s.logger.Info("loaded genres", "kind", kind, "count", len(genres))
	return genres, nil
}

func (s *Service) cachedGenres(key string) ([]domain.Genre, bool) {
	raw, ok, err := s.storage.Get(key)
	if err != nil {
		s.logger.Warn("failed to read genre cache", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var genres []domain.Genre
	if err := json.Unmarshal([]byte(raw), &genres); err != nil || len(genres) == 0 {
		s.logger.Warn("discarding unreadable genre cache", "key", key)
		return nil, false
	}
	return genres, true
}

func (s *Service) storeGenres(key string, genres []domain.Genre) {
	data, err := json.Marshal(genres)
	if err != nil {
		s.logger.Warn("failed to encode genre cache", "key", key, "error", err)
		return
	}
	if err := s.storage.Set(key, string(data)); err != nil {
		s.logger.Warn("failed to write genre cache", "key", key, "error", err)
	}
}

// mergeGenres dedupes groups by id, keeping the first occurrence, and sorts by name
func mergeGenres(groups ...[]domain.Genre) []domain.Genre {
	seen := make(map[int]bool)
	var merged []domain.Genre
	for _, group := range groups {
		for _, g := range group {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			merged = append(merged, g)
		}
	}
	slices.SortStableFunc(merged, func(a, b domain.Genre) int {
		return strings.Compare(a.Name, b.Name)
	})
	return merged
}

// InvalidateGenres drops the cached genre list for kind
func (s *Service) InvalidateGenres(kind domain.MediaKind) error {
	return s.storage.Delete(GenreKey(kind))
}
