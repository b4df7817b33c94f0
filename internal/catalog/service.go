// Package catalog browses the remote anime and manga catalog: seasonal and
// genre listings, rankings, search and detail pages.
package catalog

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/jikan"
	"golang.org/x/sync/errgroup"
)

const (
	spotlightSize = 10
	searchLimit   = 25
)

// Source is the subset of the Jikan client the catalog reads from
type Source interface {
	domain.EntryFetcher
	Search(ctx context.Context, kind domain.MediaKind, q jikan.SearchQuery) (domain.Page[domain.Entry], error)
	Top(ctx context.Context, kind domain.MediaKind, q jikan.TopQuery) (domain.Page[domain.Entry], error)
	SeasonNow(ctx context.Context, q jikan.SeasonQuery) (domain.Page[domain.Entry], error)
	Genres(ctx context.Context, kind domain.MediaKind, filter string) ([]domain.Genre, error)
	AnimeCharacters(ctx context.Context, id domain.MediaID) ([]domain.Character, error)
	MangaCharacters(ctx context.Context, id domain.MediaID) ([]domain.Character, error)
	AnimeStaff(ctx context.Context, id domain.MediaID) ([]domain.StaffMember, error)
	TopCharacters(ctx context.Context, page int) (domain.Page[domain.Character], error)
}

// Service handles catalog browsing with a persisted genre cache
type Service struct {
	source  Source
	storage domain.Storage
	banned  map[domain.MediaID]bool
	logger  *slog.Logger
}

// NewService creates a catalog service. Entries whose id is in bannedIDs
// never appear in Browse results.
func NewService(source Source, storage domain.Storage, bannedIDs []int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	banned := make(map[domain.MediaID]bool, len(bannedIDs))
	for _, id := range bannedIDs {
		banned[domain.MediaID(strconv.Itoa(id))] = true
	}
	return &Service{
		source:  source,
		storage: storage,
		banned:  banned,
		logger:  logger,
	}
}

// BrowseQuery selects a page of the anime browse listing.
// Genre 0 means the current season.
type BrowseQuery struct {
	Genre int
	Page  int
}

// Browse returns TV anime, either the current season or the most popular
// shows in one genre.
func (s *Service) Browse(ctx context.Context, q BrowseQuery) (domain.Page[domain.Entry], error) {
	var (
		page domain.Page[domain.Entry]
		err  error
	)
	if q.Genre > 0 {
		page, err = s.source.Search(ctx, domain.KindAnime, jikan.SearchQuery{
			Page:    q.Page,
			Genres:  []int{q.Genre},
			Type:    "tv",
			OrderBy: "members",
			Sort:    "desc",
			SFW:     true,
		})
	} else {
		page, err = s.source.SeasonNow(ctx, jikan.SeasonQuery{Filter: "tv", Page: q.Page, SFW: true})
	}
	if err != nil {
		s.logger.Error("failed to browse catalog", "genre", q.Genre, "page", q.Page, "error", err)
		return domain.Page[domain.Entry]{}, err
	}

	before := len(page.Items)
	page.Items = s.dropBanned(page.Items)
	if dropped := before - len(page.Items); dropped > 0 {
		s.logger.Debug("dropped banned entries", "count", dropped)
	}
	return page, nil
}

func (s *Service) dropBanned(entries []domain.Entry) []domain.Entry {
	if len(s.banned) == 0 {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if !s.banned[e.ID] {
			kept = append(kept, e)
		}
	}
	return kept
}

// Spotlight returns the ten most popular anime
func (s *Service) Spotlight(ctx context.Context) ([]domain.Entry, error) {
	page, err := s.source.Top(ctx, domain.KindAnime, jikan.TopQuery{Filter: "bypopularity", Limit: spotlightSize})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Trending returns one page of the top anime ranking
func (s *Service) Trending(ctx context.Context, page int) (domain.Page[domain.Entry], error) {
	return s.source.Top(ctx, domain.KindAnime, jikan.TopQuery{Page: page})
}

// TopMovies returns one page of the top anime films
func (s *Service) TopMovies(ctx context.Context, page int) (domain.Page[domain.Entry], error) {
	return s.source.Top(ctx, domain.KindAnime, jikan.TopQuery{Type: "movie", Page: page})
}

// TopManga returns one page of the top manga ranking
func (s *Service) TopManga(ctx context.Context, page int) (domain.Page[domain.Entry], error) {
	return s.source.Top(ctx, domain.KindManga, jikan.TopQuery{Page: page})
}

// TopCharacters returns one page of the most favorited characters
func (s *Service) TopCharacters(ctx context.Context, page int) (domain.Page[domain.Character], error) {
	return s.source.TopCharacters(ctx, page)
}

// Search looks up titles matching query within kind
func (s *Service) Search(ctx context.Context, kind domain.MediaKind, query string, page int) (domain.Page[domain.Entry], error) {
	if !kind.Valid() {
		return domain.Page[domain.Entry]{}, domain.ErrInvalidInput
	}
	return s.source.Search(ctx, kind, jikan.SearchQuery{Query: query, Page: page, Limit: searchLimit})
}

// Details is everything a detail page shows for one entry
type Details struct {
	Entry      *domain.Entry
	Characters []domain.Character
	Staff      []domain.StaffMember // anime only
}

// Details fetches an entry together with its cast and, for anime, staff.
// Only a failure to fetch the entry itself is returned; cast and staff
// are left empty when their requests fail.
func (s *Service) Details(ctx context.Context, kind domain.MediaKind, id domain.MediaID) (*Details, error) {
	var d Details

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entry, err := s.source.FetchEntry(gctx, kind, id)
		if err != nil {
			return err
		}
		d.Entry = entry
		return nil
	})
	g.Go(func() error {
		var err error
		if kind == domain.KindManga {
			d.Characters, err = s.source.MangaCharacters(gctx, id)
		} else {
			d.Characters, err = s.source.AnimeCharacters(gctx, id)
		}
		if err != nil {
			s.logger.Warn("failed to load characters", "kind", kind, "id", id, "error", err)
			d.Characters = nil
		}
		return nil
	})
	if kind == domain.KindAnime {
		g.Go(func() error {
			staff, err := s.source.AnimeStaff(gctx, id)
			if err != nil {
				s.logger.Warn("failed to load staff", "id", id, "error", err)
				return nil
			}
			d.Staff = staff
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
