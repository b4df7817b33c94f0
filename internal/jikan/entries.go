package jikan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mmcdole/animewiki/internal/domain"
)

// Anime returns the full record for one anime
func (c *Client) Anime(ctx context.Context, id domain.MediaID) (*domain.Entry, error) {
	return c.full(ctx, domain.KindAnime, id)
}

// Manga returns the full record for one manga
func (c *Client) Manga(ctx context.Context, id domain.MediaID) (*domain.Entry, error) {
	return c.full(ctx, domain.KindManga, id)
}

// FetchEntry resolves id within kind. It satisfies domain.EntryFetcher.
func (c *Client) FetchEntry(ctx context.Context, kind domain.MediaKind, id domain.MediaID) (*domain.Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown media kind %d", domain.ErrInvalidInput, int(kind))
	}
	return c.full(ctx, kind, id)
}

func (c *Client) full(ctx context.Context, kind domain.MediaKind, id domain.MediaID) (*domain.Entry, error) {
	op := kind.String()
	path := itemPath(kind, id, "/full")

	env, err := c.get(ctx, op, path, nil)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &Error{Op: op, Path: path, Err: domain.ErrNotFound}
	}

	entry, err := decodeEntry(kind, env.Data)
	if err != nil {
		return nil, &Error{Op: op, Path: path, Err: fmt.Errorf("failed to parse data: %w", err)}
	}
	return entry, nil
}

// AnimeCharacters returns the cast of an anime
func (c *Client) AnimeCharacters(ctx context.Context, id domain.MediaID) ([]domain.Character, error) {
	return c.characters(ctx, domain.KindAnime, id)
}

// MangaCharacters returns the cast of a manga
func (c *Client) MangaCharacters(ctx context.Context, id domain.MediaID) ([]domain.Character, error) {
	return c.characters(ctx, domain.KindManga, id)
}

func (c *Client) characters(ctx context.Context, kind domain.MediaKind, id domain.MediaID) ([]domain.Character, error) {
	const op = "characters"
	path := itemPath(kind, id, "/characters")

	env, err := c.get(ctx, op, path, nil)
	if err != nil {
		return nil, err
	}
	var raws []rawCastEntry
	if err := decodeData(op, path, env, &raws); err != nil {
		return nil, err
	}
	return mapCast(raws), nil
}

// AnimeStaff returns production credits for an anime
func (c *Client) AnimeStaff(ctx context.Context, id domain.MediaID) ([]domain.StaffMember, error) {
	const op = "staff"
	path := itemPath(domain.KindAnime, id, "/staff")

	env, err := c.get(ctx, op, path, nil)
	if err != nil {
		return nil, err
	}
	var raws []rawStaffEntry
	if err := decodeData(op, path, env, &raws); err != nil {
		return nil, err
	}
	return mapStaff(raws), nil
}

// AnimeEpisodes returns one page of an anime's episode list. Pages start at 1.
func (c *Client) AnimeEpisodes(ctx context.Context, id domain.MediaID, page int) (domain.Page[domain.Episode], error) {
	const op = "episodes"
	path := itemPath(domain.KindAnime, id, "/episodes")

	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	env, err := c.get(ctx, op, path, query)
	if err != nil {
		return domain.Page[domain.Episode]{}, err
	}
	var raws []rawEpisode
	if err := decodeData(op, path, env, &raws); err != nil {
		return domain.Page[domain.Episode]{}, err
	}
	return domain.Page[domain.Episode]{
		Items:      mapEpisodes(raws),
		Pagination: mapPagination(env.Pagination),
	}, nil
}
