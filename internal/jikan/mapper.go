package jikan

import (
	"encoding/json"
	"strconv"

	"github.com/mmcdole/animewiki/internal/domain"
)

// mapAnime converts an API anime object to a domain entry, keeping raw as the payload
func mapAnime(a rawAnime, raw json.RawMessage) *domain.Entry {
	year := a.Year
	if year == 0 {
		year = a.Aired.Prop.From.Year
	}
	return &domain.Entry{
		ID:           domain.MediaID(strconv.Itoa(a.MalID)),
		Kind:         domain.KindAnime,
		Title:        a.Title,
		TitleEnglish: a.TitleEnglish,
		ImageURL:     selectImage(a.Images),
		Type:         a.Type,
		Status:       a.Status,
		Synopsis:     a.Synopsis,
		Score:        a.Score,
		Episodes:     a.Episodes,
		Year:         year,
		Genres:       tagNames(a.Genres, a.Themes, a.Demographics),
		URL:          a.URL,
		Raw:          raw,
	}
}

// mapManga converts an API manga object to a domain entry, keeping raw as the payload
func mapManga(m rawManga, raw json.RawMessage) *domain.Entry {
	return &domain.Entry{
		ID:           domain.MediaID(strconv.Itoa(m.MalID)),
		Kind:         domain.KindManga,
		Title:        m.Title,
		TitleEnglish: m.TitleEnglish,
		ImageURL:     selectImage(m.Images),
		Type:         m.Type,
		Status:       m.Status,
		Synopsis:     m.Synopsis,
		Score:        m.Score,
		Chapters:     m.Chapters,
		Volumes:      m.Volumes,
		Year:         m.Published.Prop.From.Year,
		Genres:       tagNames(m.Genres, m.Themes, m.Demographics),
		URL:          m.URL,
		Raw:          raw,
	}
}

// decodeEntry decodes one anime or manga object
func decodeEntry(kind domain.MediaKind, raw json.RawMessage) (*domain.Entry, error) {
	if kind == domain.KindManga {
		var m rawManga
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return mapManga(m, raw), nil
	}
	var a rawAnime
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return mapAnime(a, raw), nil
}

// decodeEntries decodes a list of anime or manga objects, preserving order
func decodeEntries(kind domain.MediaKind, data json.RawMessage) ([]domain.Entry, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(raws))
	for _, raw := range raws {
		e, err := decodeEntry(kind, raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// selectImage picks the best available cover URL (prefer large jpg)
func selectImage(img rawImages) string {
	for _, u := range []string{
		img.JPG.LargeImageURL,
		img.JPG.ImageURL,
		img.WebP.LargeImageURL,
		img.WebP.ImageURL,
	} {
		if u != "" {
			return u
		}
	}
	return ""
}

// tagNames flattens genre, theme and demographic tags into names, dropping repeats
func tagNames(groups ...[]rawNamed) []string {
	seen := make(map[int]bool)
	var names []string
	for _, group := range groups {
		for _, g := range group {
			if seen[g.MalID] {
				continue
			}
			seen[g.MalID] = true
			names = append(names, g.Name)
		}
	}
	return names
}

func mapPagination(p *rawPagination) domain.Pagination {
	if p == nil {
		return domain.Pagination{}
	}
	current := p.CurrentPage
	if current == 0 {
		current = 1
	}
	return domain.Pagination{
		CurrentPage:     current,
		LastVisiblePage: p.LastVisiblePage,
		HasNextPage:     p.HasNextPage,
		Total:           p.Items.Total,
	}
}

func mapCast(entries []rawCastEntry) []domain.Character {
	chars := make([]domain.Character, 0, len(entries))
	for _, e := range entries {
		chars = append(chars, domain.Character{
			ID:        e.Character.MalID,
			Name:      e.Character.Name,
			Role:      e.Role,
			ImageURL:  selectImage(e.Character.Images),
			Favorites: e.Favorites,
		})
	}
	return chars
}

func mapCharacters(raws []rawCharacter) []domain.Character {
	chars := make([]domain.Character, 0, len(raws))
	for _, c := range raws {
		chars = append(chars, domain.Character{
			ID:        c.MalID,
			Name:      c.Name,
			ImageURL:  selectImage(c.Images),
			Favorites: c.Favorites,
		})
	}
	return chars
}

func mapStaff(entries []rawStaffEntry) []domain.StaffMember {
	staff := make([]domain.StaffMember, 0, len(entries))
	for _, e := range entries {
		staff = append(staff, domain.StaffMember{
			ID:        e.Person.MalID,
			Name:      e.Person.Name,
			Positions: e.Positions,
		})
	}
	return staff
}

func mapEpisodes(raws []rawEpisode) []domain.Episode {
	eps := make([]domain.Episode, 0, len(raws))
	for _, e := range raws {
		eps = append(eps, domain.Episode{
			Number: e.MalID,
			Title:  e.Title,
			Aired:  e.Aired,
			Filler: e.Filler,
			Recap:  e.Recap,
		})
	}
	return eps
}

func mapGenres(raws []rawGenre) []domain.Genre {
	genres := make([]domain.Genre, 0, len(raws))
	for _, g := range raws {
		genres = append(genres, domain.Genre{ID: g.MalID, Name: g.Name, Count: g.Count})
	}
	return genres
}
