// Package mapping holds the operator name to template document lookup table.
//
// The table is loaded from a JSON sidecar file or, when that is missing or
// unreadable, rebuilt by scanning the formats folder and saved back. It is
// never changed after LoadOrBuild returns.
package mapping

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// DefaultExtension is the template file extension scanned on rebuild.
const DefaultExtension = ".docx"

// Origin tells where the entries of a Mapping came from.
type Origin string

const (
	OriginSidecar Origin = "sidecar"
	OriginScan    Origin = "scan"
	OriginEmpty   Origin = "empty"
)

// Entry maps one operator display name to a template path.
type Entry struct {
	Operator     string
	TemplatePath string
}

// Mapping is an ordered, read-only operator table.
type Mapping struct {
	entries []Entry
	exact   map[string]int
	origin  Origin
	logger  *zap.Logger
}

var _ domain.TemplateResolver = (*Mapping)(nil)

// Source locates the formats folder and the sidecar file.
type Source struct {
	FormatsDir  string
	SidecarPath string
	Extension   string
}

// newMapping returns an empty mapping of the given origin.
func newMapping(origin Origin, logger *zap.Logger) *Mapping {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapping{
		exact:  make(map[string]int),
		origin: origin,
		logger: logger,
	}
}

// add appends an entry. A name already present keeps its position and takes
// the new path when replace is set; otherwise the first path wins.
func (m *Mapping) add(operator, path string, replace bool) bool {
	key := normalize(operator)
	if i, ok := m.exact[key]; ok {
		if replace {
			m.entries[i].TemplatePath = path
		}
		return false
	}
	m.exact[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Operator: operator, TemplatePath: path})
	return true
}

// LoadOrBuild returns the mapping from the sidecar file, or rebuilds it from
// the formats folder and persists it. Failures are logged; the result is
// always usable, possibly empty.
func LoadOrBuild(src Source, logger *zap.Logger) *Mapping {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mapping")

	if _, err := os.Stat(src.SidecarPath); err == nil {
		m, err := Load(src.SidecarPath, src.FormatsDir, logger)
		if err == nil {
			logger.Info("operator mapping loaded",
				zap.String("sidecar", src.SidecarPath),
				zap.Int("operators", m.Len()))
			m.reportOverlaps()
			return m
		}
		logger.Error("cannot load operator mapping, rebuilding from formats folder",
			zap.String("sidecar", src.SidecarPath), zap.Error(err))
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Error("cannot stat operator mapping", zap.String("sidecar", src.SidecarPath), zap.Error(err))
	}

	logger.Warn("building operator mapping from templates", zap.String("formats", src.FormatsDir))
	m, err := Build(src.FormatsDir, src.Extension, logger)
	if err != nil {
		logger.Error("cannot scan formats folder", zap.String("formats", src.FormatsDir), zap.Error(err))
		return m
	}
	m.reportOverlaps()

	if err := m.Save(src.SidecarPath, src.FormatsDir); err != nil {
		logger.Error("cannot save operator mapping", zap.String("sidecar", src.SidecarPath), zap.Error(err))
	} else {
		logger.Info("operator mapping saved",
			zap.String("sidecar", src.SidecarPath),
			zap.Int("operators", m.Len()))
	}
	return m
}

// Resolve finds the template for operatorName. An entry whose key equals the
// name wins even over earlier entries, which departs from plain table order;
// otherwise the first entry, in table order, whose key contains the name or is
// contained in it.
func (m *Mapping) Resolve(operatorName string) (domain.TemplateMatch, bool) {
	query := normalize(strings.TrimSpace(operatorName))
	if query == "" {
		return domain.TemplateMatch{}, false
	}

	if i, ok := m.exact[query]; ok {
		e := m.entries[i]
		return domain.TemplateMatch{Operator: e.Operator, TemplatePath: e.TemplatePath, Kind: domain.MatchExact}, true
	}

	for _, e := range m.entries {
		key := normalize(e.Operator)
		if key == "" {
			continue
		}
		if strings.Contains(query, key) || strings.Contains(key, query) {
			m.logger.Warn("operator resolved by partial name",
				zap.String("operator", operatorName),
				zap.String("entry", e.Operator))
			return domain.TemplateMatch{Operator: e.Operator, TemplatePath: e.TemplatePath, Kind: domain.MatchSubstring}, true
		}
	}
	return domain.TemplateMatch{}, false
}

// Entries returns a copy of the entries in table order.
func (m *Mapping) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of operators.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Origin reports where the entries came from.
func (m *Mapping) Origin() Origin {
	return m.origin
}

// Overlaps returns the pairs of operator names where one contains the other.
// Such names may resolve to the wrong template by partial match.
func (m *Mapping) Overlaps() [][2]string {
	var pairs [][2]string
	for i := 0; i < len(m.entries); i++ {
		a := normalize(m.entries[i].Operator)
		for j := i + 1; j < len(m.entries); j++ {
			b := normalize(m.entries[j].Operator)
			if strings.Contains(a, b) || strings.Contains(b, a) {
				pairs = append(pairs, [2]string{m.entries[i].Operator, m.entries[j].Operator})
			}
		}
	}
	return pairs
}

// reportOverlaps logs every pair of keys where one contains the other.
func (m *Mapping) reportOverlaps() {
	for _, pair := range m.Overlaps() {
		m.logger.Warn("overlapping operator names",
			zap.String("first", pair[0]),
			zap.String("second", pair[1]))
	}
}

// String describes the mapping size and origin.
func (m *Mapping) String() string {
	return fmt.Sprintf("mapping(%s, %d operators)", m.origin, len(m.entries))
}

// normalize puts s in Unicode NFC form.
func normalize(s string) string {
	return norm.NFC.String(s)
}
