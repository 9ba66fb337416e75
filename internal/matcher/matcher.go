package matcher

import (
	"regexp"
	"sort"
	"sync"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// RangeReplacer is a piece of editable text, such as a document paragraph.
type RangeReplacer interface {
	Text() string
	ReplaceRange(start, end int, text string) error
}

// MarkerMatcher finds literal markers in text.
type MarkerMatcher struct {
	mu           sync.Mutex
	patternCache map[string]*regexp.Regexp
}

// NewMarkerMatcher creates a matcher with an empty pattern cache.
func NewMarkerMatcher() *MarkerMatcher {
	return &MarkerMatcher{
		patternCache: make(map[string]*regexp.Regexp),
	}
}

// FindMatches returns every non-overlapping occurrence of r.Marker in content,
// scanning left to right. The result is sorted by descending StartPos so it can
// be applied back to front without shifting earlier offsets.
func (m *MarkerMatcher) FindMatches(content string, r domain.Replacement) []domain.Match {
	if r.Marker == "" {
		return nil
	}

	indexes := m.pattern(r.Marker).FindAllStringIndex(content, -1)
	matches := make([]domain.Match, 0, len(indexes))
	for _, index := range indexes {
		matches = append(matches, domain.Match{
			Marker:      r.Marker,
			Replacement: r.Text,
			StartPos:    index[0],
			EndPos:      index[1],
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartPos > matches[j].StartPos
	})
	return matches
}

// Apply replaces every occurrence of r.Marker in target and returns how many
// occurrences were replaced.
func (m *MarkerMatcher) Apply(target RangeReplacer, r domain.Replacement) (int, error) {
	matches := m.FindMatches(target.Text(), r)
	for i, match := range matches {
		if err := target.ReplaceRange(match.StartPos, match.EndPos, match.Replacement); err != nil {
			return i, err
		}
	}
	return len(matches), nil
}

// pattern returns the cached literal pattern for marker.
func (m *MarkerMatcher) pattern(marker string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern, exists := m.patternCache[marker]; exists {
		return pattern
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(marker))
	m.patternCache[marker] = pattern
	return pattern
}
