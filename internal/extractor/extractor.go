// Package extractor reads case fields out of acceptance documents with
// ordered fallback patterns.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/domain"
	"github.com/allanpk716/expediente_notifier/pkg/docx"
)

// Extractor turns acceptance documents into case records.
type Extractor struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for CaseRecord.ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an extractor logging under the "extractor" name.
func New(logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		logger: logger.Named("extractor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ domain.CaseExtractor = (*Extractor)(nil)

// ExtractFile opens the document at path and extracts from its top-level paragraphs.
func (e *Extractor) ExtractFile(path string) (*domain.CaseRecord, error) {
	e.logger.Info("extracting case fields", zap.String("file", filepath.Base(path)))

	doc, err := docx.Open(path)
	if err != nil {
		e.logger.Error("cannot open acceptance document", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIOFailure, path, err)
	}
	defer doc.Close()

	return e.extract(filepath.Base(path), doc.ParagraphTexts())
}

// ExtractText extracts from plain text, one paragraph per line.
func (e *Extractor) ExtractText(text string) (*domain.CaseRecord, error) {
	return e.extract("", strings.Split(text, "\n"))
}

// Extract extracts from an ordered list of paragraph texts.
func (e *Extractor) Extract(paragraphs []string) (*domain.CaseRecord, error) {
	return e.extract("", paragraphs)
}

// extract applies every field rule to paragraphs; source names the document in errors.
func (e *Extractor) extract(source string, paragraphs []string) (*domain.CaseRecord, error) {
	text := strings.Join(paragraphs, "\n")
	values := make(map[string]string, len(textRules)+1)
	var missing []string

	for _, rule := range textRules {
		value, strategy, ok := firstMatch(text, rule.strategies)
		if !ok {
			if rule.required {
				missing = append(missing, rule.field)
			}
			continue
		}
		e.logger.Debug("field matched",
			zap.String("field", rule.field),
			zap.String("strategy", strategy),
			zap.String("value", value))
		values[rule.field] = value
	}

	if operator, ok := lastPageSignature(paragraphs); ok {
		e.logger.Debug("field matched",
			zap.String("field", domain.FieldOperatorName),
			zap.String("strategy", operatorLastPageSignature.Name),
			zap.String("value", operator))
		values[domain.FieldOperatorName] = operator
	} else {
		missing = append(missing, domain.FieldOperatorName)
	}

	if len(missing) > 0 {
		err := &domain.ExtractionError{Source: source, Missing: missing}
		e.logger.Warn("required fields not found",
			zap.String("file", source),
			zap.Strings("missing", missing))
		return nil, err
	}

	record := &domain.CaseRecord{
		DebtorName:   values[domain.FieldDebtorName],
		IDNumber:     values[domain.FieldIDNumber],
		CaseNumber:   values[domain.FieldCaseNumber],
		OperatorName: values[domain.FieldOperatorName],
		FilingDate:   values[FieldFilingDate],
		HearingDate:  values[FieldHearingDate],
		ExtractedAt:  e.now(),
	}
	e.logger.Info("case fields extracted",
		zap.String("file", source),
		zap.String("debtor", record.DebtorName),
		zap.String("id_number", record.IDNumber),
		zap.String("case_number", record.CaseNumber),
		zap.String("operator", record.OperatorName),
		zap.Bool("filing_date", record.HasFilingDate()),
		zap.Bool("hearing_date", record.HasHearingDate()))
	return record, nil
}
