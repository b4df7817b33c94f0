package jikan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/animewiki/internal/config"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "load fixture %s", name)
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.CatalogConfig{
		BaseURL:           server.URL + "/v4",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
	}, log.NullLogger())
}

func TestClient_Anime(t *testing.T) {
	fixture := loadFixture(t, "anime_full.json")
	var gotPath, gotAccept string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Write(fixture)
	})

	entry, err := client.Anime(context.Background(), "5114")
	require.NoError(t, err)

	assert.Equal(t, "/v4/anime/5114/full", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, domain.MediaID("5114"), entry.ID)
	assert.Equal(t, domain.KindAnime, entry.Kind)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", entry.Title)
	assert.Equal(t, "https://cdn.myanimelist.net/images/anime/1208/94745l.jpg", entry.ImageURL)
	assert.Equal(t, 64, entry.Episodes)
	assert.Equal(t, 2009, entry.Year)
	assert.InDelta(t, 9.1, entry.Score, 0.001)
	assert.Equal(t, []string{"Action", "Adventure", "Military", "Shounen"}, entry.Genres)
	assert.Contains(t, string(entry.Raw), `"mal_id": 5114`)
}

func TestClient_FetchEntryManga(t *testing.T) {
	fixture := loadFixture(t, "manga_full.json")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/manga/2/full", r.URL.Path)
		w.Write(fixture)
	})

	entry, err := client.FetchEntry(context.Background(), domain.KindManga, "2")
	require.NoError(t, err)

	assert.Equal(t, domain.KindManga, entry.Kind)
	assert.Equal(t, "Berserk", entry.DisplayTitle())
	assert.Empty(t, entry.TitleEnglish)
	assert.Equal(t, "https://cdn.myanimelist.net/images/manga/1/157897.jpg", entry.ImageURL)
	assert.Equal(t, 0, entry.Volumes)
	assert.Equal(t, 1989, entry.Year)
	assert.Equal(t, "? vols", entry.CountLabel())
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{"not found", http.StatusNotFound, domain.ErrNotFound, 1},
		{"bad request", http.StatusBadRequest, domain.ErrInvalidInput, 1},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited, 3},
		{"server error", http.StatusServiceUnavailable, domain.ErrServerError, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := client.Anime(context.Background(), "1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "/anime/1/full", apiErr.Path)
		})
	}
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	fixture := loadFixture(t, "anime_full.json")
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(fixture)
	})

	entry, err := client.Anime(context.Background(), "5114")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaID("5114"), entry.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Offline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(config.CatalogConfig{
		BaseURL:           url,
		Timeout:           time.Second,
		RequestsPerSecond: 100,
		Burst:             1,
	}, log.NullLogger())

	_, err := client.Anime(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Anime(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrServerOffline)
}

func TestClient_NullData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null}`))
	})

	_, err := client.Manga(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_SeasonNow(t *testing.T) {
	fixture := loadFixture(t, "season_now.json")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/seasons/now", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("sfw"))
		assert.Equal(t, "tv", r.URL.Query().Get("filter"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write(fixture)
	})

	page, err := client.SeasonNow(context.Background(), SeasonQuery{Filter: "tv", Page: 2, SFW: true})
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.MediaID("20"), page.Items[0].ID)
	assert.Equal(t, domain.MediaID("21"), page.Items[1].ID)
	assert.Equal(t, 0, page.Items[1].Episodes)
	assert.True(t, page.Pagination.HasNextPage)
	assert.Equal(t, 4, page.Pagination.LastVisiblePage)
	assert.Equal(t, 96, page.Pagination.Total)
}

func TestClient_Search(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v4/anime", r.URL.Path)
		assert.Equal(t, "1,22", q.Get("genres"))
		assert.Equal(t, "members", q.Get("order_by"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Empty(t, q.Get("q"))
		w.Write([]byte(`{"data": [], "pagination": {"last_visible_page": 1, "has_next_page": false}}`))
	})

	page, err := client.Search(context.Background(), domain.KindAnime, SearchQuery{
		Genres:  []int{1, 22},
		OrderBy: "members",
		Sort:    "desc",
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
}

func TestClient_Genres(t *testing.T) {
	fixture := loadFixture(t, "genres.json")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/genres/manga", r.URL.Path)
		assert.Equal(t, "themes", r.URL.Query().Get("filter"))
		w.Write(fixture)
	})

	genres, err := client.Genres(context.Background(), domain.KindManga, "themes")
	require.NoError(t, err)
	assert.Equal(t, []domain.Genre{
		{ID: 1, Name: "Action", Count: 5000},
		{ID: 4, Name: "Comedy", Count: 7000},
	}, genres)
}

func TestClient_CharactersAndStaff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/anime/5114/characters":
			w.Write([]byte(`{"data": [{"character": {"mal_id": 11, "name": "Elric, Edward", "images": {"jpg": {"image_url": "ed.jpg"}}}, "role": "Main", "favorites": 90000}]}`))
		case "/v4/anime/5114/staff":
			w.Write([]byte(`{"data": [{"person": {"mal_id": 7, "name": "Irie, Yasuhiro"}, "positions": ["Director"]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	chars, err := client.AnimeCharacters(context.Background(), "5114")
	require.NoError(t, err)
	assert.Equal(t, []domain.Character{{ID: 11, Name: "Elric, Edward", Role: "Main", ImageURL: "ed.jpg", Favorites: 90000}}, chars)

	staff, err := client.AnimeStaff(context.Background(), "5114")
	require.NoError(t, err)
	assert.Equal(t, []domain.StaffMember{{ID: 7, Name: "Irie, Yasuhiro", Positions: []string{"Director"}}}, staff)

	_, err = client.MangaCharacters(context.Background(), "5114")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_EpisodesAndTopCharacters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/anime/21/episodes":
			assert.Equal(t, "3", r.URL.Query().Get("page"))
			w.Write([]byte(`{"pagination": {"last_visible_page": 12, "has_next_page": true}, "data": [{"mal_id": 201, "title": "Ep", "aired": "2004-08-29T00:00:00+00:00", "filler": true, "recap": false}]}`))
		case "/v4/top/characters":
			w.Write([]byte(`{"pagination": {"last_visible_page": 1, "has_next_page": false}, "data": [{"mal_id": 40, "name": "Lamperouge, Lelouch", "favorites": 170000}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	eps, err := client.AnimeEpisodes(context.Background(), "21", 3)
	require.NoError(t, err)
	require.Len(t, eps.Items, 1)
	assert.Equal(t, 201, eps.Items[0].Number)
	assert.True(t, eps.Items[0].Filler)
	assert.True(t, eps.Pagination.HasNextPage)

	top, err := client.TopCharacters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top.Items, 1)
	assert.Equal(t, "Lamperouge, Lelouch", top.Items[0].Name)
	assert.Equal(t, 170000, top.Items[0].Favorites)
}

func TestClient_FetchEntryInvalidKind(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := client.FetchEntry(context.Background(), domain.MediaKind(9), "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
