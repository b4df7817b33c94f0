package jikan

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/animewiki/internal/domain"
)

// SearchQuery parameters for /anime and /manga
type SearchQuery struct {
	Query   string
	Page    int
	Limit   int
	Genres  []int
	Type    string // "tv", "movie", "manga", "novel", ...
	OrderBy string // "members", "score", "popularity", ...
	Sort    string // "asc" or "desc"
	SFW     bool
}

func (q SearchQuery) values() url.Values {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.SFW {
		v.Set("sfw", "true")
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if len(q.Genres) > 0 {
		ids := make([]string, len(q.Genres))
		for i, g := range q.Genres {
			ids[i] = strconv.Itoa(g)
		}
		v.Set("genres", strings.Join(ids, ","))
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	setPaging(v, q.Page, q.Limit)
	return v
}

// TopQuery parameters for /top/anime and /top/manga
type TopQuery struct {
	Filter string // "airing", "bypopularity", "favorite", ...
	Type   string
	Page   int
	Limit  int
}

func (q TopQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	setPaging(v, q.Page, q.Limit)
	return v
}

// SeasonQuery parameters for /seasons/now
type SeasonQuery struct {
	Filter string // "tv", "movie", "ova", ...
	Page   int
	Limit  int
	SFW    bool
}

func (q SeasonQuery) values() url.Values {
	v := url.Values{}
	if q.SFW {
		v.Set("sfw", "true")
	}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	setPaging(v, q.Page, q.Limit)
	return v
}

func setPaging(v url.Values, page, limit int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
}

// Search runs a catalog search within kind
func (c *Client) Search(ctx context.Context, kind domain.MediaKind, q SearchQuery) (domain.Page[domain.Entry], error) {
	return c.entryPage(ctx, kind, "search", "/"+kind.String(), q.values())
}

// Top returns the ranked listing for kind
func (c *Client) Top(ctx context.Context, kind domain.MediaKind, q TopQuery) (domain.Page[domain.Entry], error) {
	return c.entryPage(ctx, kind, "top", "/top/"+kind.String(), q.values())
}

// SeasonNow returns anime airing this season
func (c *Client) SeasonNow(ctx context.Context, q SeasonQuery) (domain.Page[domain.Entry], error) {
	return c.entryPage(ctx, domain.KindAnime, "season", "/seasons/now", q.values())
}

func (c *Client) entryPage(ctx context.Context, kind domain.MediaKind, op, path string, query url.Values) (domain.Page[domain.Entry], error) {
	env, err := c.get(ctx, op, path, query)
	if err != nil {
		return domain.Page[domain.Entry]{}, err
	}

	// An empty listing comes back as "data": []
	var entries []domain.Entry
	if len(env.Data) > 0 && string(env.Data) != "null" {
		entries, err = decodeEntries(kind, env.Data)
		if err != nil {
			return domain.Page[domain.Entry]{}, &Error{Op: op, Path: path, Err: err}
		}
	}
	return domain.Page[domain.Entry]{
		Items:      entries,
		Pagination: mapPagination(env.Pagination),
	}, nil
}

// TopCharacters returns the most favorited characters
func (c *Client) TopCharacters(ctx context.Context, page int) (domain.Page[domain.Character], error) {
	const (
		op   = "top characters"
		path = "/top/characters"
	)
	query := url.Values{}
	setPaging(query, page, 0)

	env, err := c.get(ctx, op, path, query)
	if err != nil {
		return domain.Page[domain.Character]{}, err
	}
	var raws []rawCharacter
	if err := decodeData(op, path, env, &raws); err != nil {
		return domain.Page[domain.Character]{}, err
	}
	return domain.Page[domain.Character]{
		Items:      mapCharacters(raws),
		Pagination: mapPagination(env.Pagination),
	}, nil
}

// Genres returns the tag list for kind. filter is "", "genres", "themes",
// "demographics" or "explicit_genres".
func (c *Client) Genres(ctx context.Context, kind domain.MediaKind, filter string) ([]domain.Genre, error) {
	const op = "genres"
	path := "/genres/" + kind.String()

	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}

	env, err := c.get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}
	var raws []rawGenre
	if err := decodeData(op, path, env, &raws); err != nil {
		return nil, err
	}
	return mapGenres(raws), nil
}
