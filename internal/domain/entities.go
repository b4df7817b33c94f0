package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MediaKind selects one of the two independent catalogs
type MediaKind int

const (
	KindAnime MediaKind = iota
	KindManga
)

// Kinds lists every catalog in display order
var Kinds = []MediaKind{KindAnime, KindManga}

// String returns the lowercase name used in URLs and flags
func (k MediaKind) String() string {
	switch k {
	case KindAnime:
		return "anime"
	case KindManga:
		return "manga"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind
func (k MediaKind) Valid() bool {
	return k == KindAnime || k == KindManga
}

// ParseMediaKind converts "anime" or "manga" (any case) to a MediaKind
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anime":
		return KindAnime, nil
	case "manga":
		return KindManga, nil
	default:
		return 0, fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, s)
	}
}

// MediaID identifies one catalog entry within a single MediaKind.
// IDs from different kinds are never comparable.
type MediaID string

// ParseMediaID trims s and rejects empty identifiers
func ParseMediaID(s string) (MediaID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty media id", ErrInvalidInput)
	}
	return MediaID(s), nil
}

// UserHandle is a self-declared username used only as a storage namespace.
// The zero value is the anonymous user.
type UserHandle string

// Anonymous reports whether no user is set
func (u UserHandle) Anonymous() bool {
	return strings.TrimSpace(string(u)) == ""
}

// Normalize returns the handle with surrounding whitespace removed
func (u UserHandle) Normalize() UserHandle {
	return UserHandle(strings.TrimSpace(string(u)))
}

// Entry is a catalog record resolved from the remote API.
// Raw keeps the payload exactly as the API returned it.
type Entry struct {
	ID           MediaID
	Kind         MediaKind
	Title        string
	TitleEnglish string
	ImageURL     string
	Type         string // "TV", "Movie", "Manga", "Light Novel", ...
	Status       string
	Synopsis     string
	Score        float64
	Episodes     int // anime only, 0 = unknown
	Chapters     int // manga only, 0 = unknown
	Volumes      int // manga only, 0 = unknown
	Year         int
	Genres       []string
	URL          string

	Raw json.RawMessage `json:"-"`
}

// DisplayTitle prefers the English title when present
func (e Entry) DisplayTitle() string {
	if e.TitleEnglish != "" {
		return e.TitleEnglish
	}
	return e.Title
}

// CountLabel returns "12 eps" for anime or "3 vols" for manga, with "?" for unknown
func (e Entry) CountLabel() string {
	if e.Kind == KindManga {
		if e.Volumes > 0 {
			return fmt.Sprintf("%d vols", e.Volumes)
		}
		if e.Chapters > 0 {
			return fmt.Sprintf("%d ch", e.Chapters)
		}
		return "? vols"
	}
	if e.Episodes > 0 {
		return fmt.Sprintf("%d eps", e.Episodes)
	}
	return "? eps"
}

// ScoreLabel formats the community score, "?" when unrated
func (e Entry) ScoreLabel() string {
	if e.Score <= 0 {
		return "?"
	}
	return fmt.Sprintf("%.2f", e.Score)
}

// Genre is a catalog tag (genre, theme or demographic)
type Genre struct {
	ID    int    `json:"mal_id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Character is a cast member of an anime or manga
type Character struct {
	ID        int
	Name      string
	Role      string // "Main" or "Supporting"
	ImageURL  string
	Favorites int
}

// StaffMember is a production credit on an anime
type StaffMember struct {
	ID        int
	Name      string
	Positions []string
}

// Episode is a single anime episode listing
type Episode struct {
	Number int
	Title  string
	Aired  string
	Filler bool
	Recap  bool
}

// Pagination describes where a page sits in a remote listing
type Pagination struct {
	CurrentPage     int  `json:"current_page"`
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	Total           int  `json:"total"`
}

// Page is one page of a remote listing
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}
