package jikan

import "encoding/json"

// envelope is the top-level shape of every Jikan response
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *rawPagination  `json:"pagination,omitempty"`
}

type rawPagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
	Items           struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	} `json:"items"`
}

type rawImageSet struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type rawImages struct {
	JPG  rawImageSet `json:"jpg"`
	WebP rawImageSet `json:"webp"`
}

// rawNamed is the {mal_id, type, name, url} shape used for genres, studios, authors
type rawNamed struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

type rawDateProp struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// rawDateRange is used for anime "aired" and manga "published"
type rawDateRange struct {
	From   string `json:"from"`
	To     string `json:"to"`
	String string `json:"string"`
	Prop   struct {
		From rawDateProp `json:"from"`
		To   rawDateProp `json:"to"`
	} `json:"prop"`
}

type rawAnime struct {
	MalID         int          `json:"mal_id"`
	URL           string       `json:"url"`
	Images        rawImages    `json:"images"`
	Title         string       `json:"title"`
	TitleEnglish  string       `json:"title_english"`
	TitleJapanese string       `json:"title_japanese"`
	Type          string       `json:"type"`
	Source        string       `json:"source"`
	Episodes      int          `json:"episodes"`
	Status        string       `json:"status"`
	Airing        bool         `json:"airing"`
	Aired         rawDateRange `json:"aired"`
	Duration      string       `json:"duration"`
	Rating        string       `json:"rating"`
	Score         float64      `json:"score"`
	ScoredBy      int          `json:"scored_by"`
	Rank          int          `json:"rank"`
	Popularity    int          `json:"popularity"`
	Members       int          `json:"members"`
	Synopsis      string       `json:"synopsis"`
	Season        string       `json:"season"`
	Year          int          `json:"year"`
	Studios       []rawNamed   `json:"studios"`
	Genres        []rawNamed   `json:"genres"`
	Themes        []rawNamed   `json:"themes"`
	Demographics  []rawNamed   `json:"demographics"`
}

type rawManga struct {
	MalID         int          `json:"mal_id"`
	URL           string       `json:"url"`
	Images        rawImages    `json:"images"`
	Title         string       `json:"title"`
	TitleEnglish  string       `json:"title_english"`
	TitleJapanese string       `json:"title_japanese"`
	Type          string       `json:"type"`
	Chapters      int          `json:"chapters"`
	Volumes       int          `json:"volumes"`
	Status        string       `json:"status"`
	Publishing    bool         `json:"publishing"`
	Published     rawDateRange `json:"published"`
	Score         float64      `json:"score"`
	ScoredBy      int          `json:"scored_by"`
	Rank          int          `json:"rank"`
	Popularity    int          `json:"popularity"`
	Members       int          `json:"members"`
	Synopsis      string       `json:"synopsis"`
	Authors       []rawNamed   `json:"authors"`
	Genres        []rawNamed   `json:"genres"`
	Themes        []rawNamed   `json:"themes"`
	Demographics  []rawNamed   `json:"demographics"`
}

type rawPerson struct {
	MalID  int       `json:"mal_id"`
	URL    string    `json:"url"`
	Images rawImages `json:"images"`
	Name   string    `json:"name"`
}

// rawCastEntry is one element of /{kind}/{id}/characters
type rawCastEntry struct {
	Character rawPerson `json:"character"`
	Role      string    `json:"role"`
	Favorites int       `json:"favorites"`
}

// rawCharacter is one element of /top/characters
type rawCharacter struct {
	rawPerson
	NameKanji string `json:"name_kanji"`
	Favorites int    `json:"favorites"`
}

type rawStaffEntry struct {
	Person    rawPerson `json:"person"`
	Positions []string  `json:"positions"`
}

type rawEpisode struct {
	MalID  int    `json:"mal_id"`
	Title  string `json:"title"`
	Aired  string `json:"aired"`
	Filler bool   `json:"filler"`
	Recap  bool   `json:"recap"`
}

type rawGenre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}
