package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

func TestMarkerMatcher_FindMatches(t *testing.T) {
	deudor := domain.Replacement{Marker: "**Deudor:**", Text: "**Deudor:** ANA"}

	tests := []struct {
		name     string
		text     string
		expected []int
	}{
		{
			name:     "single match",
			text:     "Datos **Deudor:** fin",
			expected: []int{6},
		},
		{
			name:     "duplicate matches in descending order",
			text:     "**Deudor:** y **Deudor:**",
			expected: []int{14, 0},
		},
		{
			name:     "no matches",
			text:     "Deudor: sin negrita",
			expected: []int{},
		},
		{
			name:     "regexp metacharacters are literal",
			text:     "xxDeudor:xx",
			expected: []int{},
		},
	}

	m := NewMarkerMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := m.FindMatches(tt.text, deudor)
			starts := make([]int, 0, len(matches))
			for _, match := range matches {
				assert.Equal(t, match.StartPos+len(deudor.Marker), match.EndPos)
				starts = append(starts, match.StartPos)
			}
			assert.Equal(t, tt.expected, starts)
		})
	}
}

func TestMarkerMatcher_NonOverlapping(t *testing.T) {
	m := NewMarkerMatcher()
	matches := m.FindMatches("aaaa", domain.Replacement{Marker: "aa", Text: "b"})
	require.Len(t, matches, 2)

	p := &fakeParagraph{text: "aaaa"}
	count, err := m.Apply(p, domain.Replacement{Marker: "aa", Text: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "bb", p.text)
}

func TestMarkerMatcher_EmptyMarker(t *testing.T) {
	m := NewMarkerMatcher()
	assert.Empty(t, m.FindMatches("texto", domain.Replacement{Text: "x"}))
}

func TestMarkerMatcher_ApplyTable(t *testing.T) {
	m := NewMarkerMatcher()
	r := domain.Replacement{Marker: "Señores", Text: "Señor(a)"}

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"single replacement", "Señores acreedores", "Señor(a) acreedores"},
		{"multiple replacements", "Señores, Señores", "Señor(a), Señor(a)"},
		{"longer replacement keeps offsets", "Señores y Señores y Señores", "Señor(a) y Señor(a) y Señor(a)"},
		{"no replacement", "Señoras", "Señoras"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeParagraph{text: tt.text}
			_, err := m.Apply(p, r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.text)
		})
	}
}

type fakeParagraph struct {
	text string
}

func (p *fakeParagraph) Text() string { return p.text }

func (p *fakeParagraph) ReplaceRange(start, end int, text string) error {
	p.text = p.text[:start] + text + p.text[end:]
	return nil
}

func TestMarkerMatcher_Apply(t *testing.T) {
	m := NewMarkerMatcher()
	p := &fakeParagraph{text: "**C.C.** y de nuevo **C.C.**"}

	count, err := m.Apply(p, domain.Replacement{Marker: "**C.C.**", Text: "**C.C.** 1.234"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "**C.C.** 1.234 y de nuevo **C.C.** 1.234", p.text)
}

func TestMarkerMatcher_PatternCache(t *testing.T) {
	m := NewMarkerMatcher()
	r := domain.Replacement{Marker: "x", Text: "y"}
	m.FindMatches("x", r)
	m.FindMatches("xx", r)
	assert.Len(t, m.patternCache, 1)
}
