package catalog

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/animewiki/internal/domain"
)

// FilterEntries keeps the entries whose title fuzzily contains query,
// ignoring case and diacritics. Input order is preserved.
func FilterEntries(query string, entries []domain.Entry) []domain.Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	var matched []domain.Entry
	for _, e := range entries {
		if fuzzy.MatchNormalizedFold(query, e.Title) || fuzzy.MatchNormalizedFold(query, e.TitleEnglish) {
			matched = append(matched, e)
		}
	}
	return matched
}
