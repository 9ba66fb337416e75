// Package generator fills an operator's notification template with the
// fields of a case record.
package generator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/domain"
	"github.com/allanpk716/expediente_notifier/internal/matcher"
	"github.com/allanpk716/expediente_notifier/pkg/docx"
)

// Template markers.
const (
	MarkerSalutation = "Señores"
	MarkerDebtor     = "**Deudor:**"
	MarkerID         = "**C.C.**"
	MarkerCase       = "**Radicado:**"

	// MarkerFilingDate is ten escaped underscores in bold.
	MarkerFilingDate = `el día **\_\_\_\_\_\_\_\_\_\_**`
	// MarkerHearingDate is fourteen escaped underscores and a dash in bold.
	MarkerHearingDate = `el día **\_\_\_\_\_\_\_\_\_\_\_\_\_\_-**`
)

// Generator writes notification documents.
type Generator struct {
	resolver domain.TemplateResolver
	matcher  *matcher.MarkerMatcher
	logger   *zap.Logger
}

var _ domain.NotificationGenerator = (*Generator)(nil)

// New creates a generator that looks templates up in resolver.
func New(resolver domain.TemplateResolver, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		resolver: resolver,
		matcher:  matcher.NewMarkerMatcher(),
		logger:   logger.Named("generator"),
	}
}

// BuildReplacements returns the replacements for record, in application order.
// Date replacements are included only for dates that were found.
func BuildReplacements(record *domain.CaseRecord) []domain.Replacement {
	replacements := []domain.Replacement{
		{Marker: MarkerSalutation, Text: "Señor(a)"},
		{Marker: MarkerDebtor, Text: MarkerDebtor + " " + record.DebtorName},
		{Marker: MarkerID, Text: MarkerID + " " + record.IDNumber},
		{Marker: MarkerCase, Text: MarkerCase + " " + record.CaseNumber},
	}
	if record.HasFilingDate() {
		replacements = append(replacements, domain.Replacement{
			Marker: MarkerFilingDate,
			Text:   "el día **" + record.FilingDate + "**",
		})
	}
	if record.HasHearingDate() {
		replacements = append(replacements, domain.Replacement{
			Marker: MarkerHearingDate,
			Text:   "el día **" + record.HearingDate + "**",
		})
	}
	return replacements
}

// OutputFileName returns the notification file name for a debtor.
func OutputFileName(debtorName string) string {
	return "Notificación_" + sanitizeFileName(debtorName) + ".docx"
}

// Generate resolves the template for record.OperatorName, applies the
// replacements to a fresh copy and writes it into outputFolder. The template
// file itself is never written.
func (g *Generator) Generate(ctx context.Context, record *domain.CaseRecord, outputFolder string) (*domain.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	match, ok := g.resolver.Resolve(record.OperatorName)
	if !ok {
		g.logger.Warn("no template for operator", zap.String("operator", record.OperatorName))
		return nil, domain.NewNoTemplateError(record.OperatorName)
	}

	doc, err := docx.Open(match.TemplatePath)
	if err != nil {
		g.logger.Error("cannot open template", zap.String("template", match.TemplatePath), zap.Error(err))
		return nil, domain.NewIOFailure(match.TemplatePath, err)
	}
	defer doc.Close()

	replacements := BuildReplacements(record)
	count, err := g.apply(doc, replacements)
	if err != nil {
		g.logger.Error("cannot apply replacements", zap.String("template", match.TemplatePath), zap.Error(err))
		return nil, domain.NewIOFailure(match.TemplatePath, err)
	}
	if !doc.Modified() {
		g.logger.Warn("template has none of the expected markers",
			zap.String("template", filepath.Base(match.TemplatePath)),
			zap.String("operator", match.Operator))
	} else {
		g.logger.Info("replacements applied", zap.Int("count", count))
	}

	outputPath := filepath.Join(outputFolder, OutputFileName(record.DebtorName))
	if err := doc.SaveAs(outputPath); err != nil {
		g.logger.Error("cannot save notification", zap.String("output", outputPath), zap.Error(err))
		return nil, domain.NewIOFailure(outputPath, err)
	}

	g.logger.Info("notification generated",
		zap.String("output", filepath.Base(outputPath)),
		zap.String("template", filepath.Base(match.TemplatePath)),
		zap.String("match", string(match.Kind)))

	return &domain.GenerationResult{
		OutputPath:   outputPath,
		TemplatePath: match.TemplatePath,
		Operator:     match.Operator,
		MatchKind:    match.Kind,
		Replacements: count,
	}, nil
}

// apply replaces every occurrence of every marker in every paragraph,
// including those inside table cells at any depth.
func (g *Generator) apply(doc *docx.Document, replacements []domain.Replacement) (int, error) {
	total := 0
	for i, p := range doc.AllParagraphs() {
		for _, r := range replacements {
			n, err := g.matcher.Apply(p, r)
			if err != nil {
				return total, fmt.Errorf("paragraph %d, marker %q: %w", i, r.Marker, err)
			}
			if n > 0 {
				g.logger.Debug("marker replaced",
					zap.Int("paragraph", i),
					zap.String("marker", r.Marker),
					zap.Int("occurrences", n))
			}
			total += n
		}
	}
	return total, nil
}

// sanitizeFileName replaces characters that Windows does not allow in file names.
func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return '_'
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimRight(name, " .")
}
