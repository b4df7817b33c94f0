package tui

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// rowSource adapts loaded rows to sahilm/fuzzy.Source
type rowSource struct {
	titles []string // lowercase
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (s rowSource) String(i int) string { return s.titles[i] }

// Len returns the number of rows (implements fuzzy.Source)
func (s rowSource) Len() int { return len(s.titles) }

func newRowSource(rows []row) rowSource {
	titles := make([]string, len(rows))
	for i, r := range rows {
		titles[i] = strings.ToLower(r.title())
	}
	return rowSource{titles: titles}
}

// filterRows returns the row indexes matching query, best match first,
// along with the matched rune positions per row.
func filterRows(query string, rows []row) ([]int, map[int][]int) {
	matches := fuzzy.FindFrom(strings.ToLower(query), newRowSource(rows))

	idx := make([]int, len(matches))
	positions := make(map[int][]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
		positions[m.Index] = m.MatchedIndexes
	}
	return idx, positions
}
