package extractor

import (
	"regexp"
	"strings"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// Optional fields. They never appear in ExtractionError.Missing.
const (
	FieldFilingDate  = "filing_date"
	FieldHearingDate = "hearing_date"
)

// uppercaseRun is at least ten uppercase letters and blanks on one line,
// starting and ending with a letter.
const uppercaseRun = `\p{Lu}[\p{Lu} \t]{8,}\p{Lu}`

// OperatorNamePattern matches a candidate operator name in a single paragraph.
// Acceptance documents and templates both sign with it; they differ only in
// where they look for the signature.
var OperatorNamePattern = regexp.MustCompile(uppercaseRun)

// Strategy is one named pattern for a field.
type Strategy struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int // capture group holding the value, 0 for the whole match
}

// Find returns the trimmed value captured by the first match in text.
// A match that is blank after trimming is reported as no match.
func (s Strategy) Find(text string) (string, bool) {
	sub := s.Pattern.FindStringSubmatch(text)
	if sub == nil || s.Group >= len(sub) {
		return "", false
	}
	value := strings.TrimSpace(sub[s.Group])
	if value == "" {
		return "", false
	}
	return value, true
}

var (
	debtorLabelled = Strategy{
		Name:    "debtor.labelled",
		Pattern: regexp.MustCompile(`Deudora?\s*([\p{Lu}\s]+?)\s*CC No`),
		Group:   1,
	}
	debtorUppercaseRun = Strategy{
		Name:    "debtor.uppercase-run",
		Pattern: regexp.MustCompile(uppercaseRun),
	}
	idCCLabel = Strategy{
		Name:    "id.cc-label",
		Pattern: regexp.MustCompile(`CC No\.\s*(\d+(?:\.\d+)*)`),
		Group:   1,
	}
	idCedulaPhrase = Strategy{
		Name:    "id.cedula-phrase",
		Pattern: regexp.MustCompile(`cédula de ciudadanía número\s*(\d+(?:\.\d+)*)`),
		Group:   1,
	}
	caseRadicado = Strategy{
		Name:    "case.radicado",
		Pattern: regexp.MustCompile(`Radicado:\s*([0-9-]+)`),
		Group:   1,
	}
	filingPresentoSolicitud = Strategy{
		Name:    "filing.presento-solicitud",
		Pattern: regexp.MustCompile(`presentó solicitud de negociación de sus deudas.*?el día (\d+ de \p{L}+ de \d+)`),
		Group:   1,
	}
	hearingAudienciaPasivos = Strategy{
		Name:    "hearing.audiencia-pasivos",
		Pattern: regexp.MustCompile(`audiencia de negociación de pasivos\s*.*?el día (\d+.*?\d+)`),
		Group:   1,
	}
	operatorLastPageSignature = Strategy{
		Name:    "operator.last-page-signature",
		Pattern: OperatorNamePattern,
	}
)

// textRule extracts one field from the joined document text. Strategies are
// tried in order; later ones are looser fallbacks.
type textRule struct {
	field      string
	required   bool
	strategies []Strategy
}

var textRules = []textRule{
	{field: domain.FieldDebtorName, required: true, strategies: []Strategy{debtorLabelled, debtorUppercaseRun}},
	{field: domain.FieldIDNumber, required: true, strategies: []Strategy{idCCLabel, idCedulaPhrase}},
	{field: domain.FieldCaseNumber, required: true, strategies: []Strategy{caseRadicado}},
	{field: FieldFilingDate, strategies: []Strategy{filingPresentoSolicitud}},
	{field: FieldHearingDate, strategies: []Strategy{hearingAudienciaPasivos}},
}

// Strategies returns the ordered strategies used for field.
func Strategies(field string) []Strategy {
	if field == domain.FieldOperatorName {
		return []Strategy{operatorLastPageSignature}
	}
	for _, rule := range textRules {
		if rule.field == field {
			return append([]Strategy(nil), rule.strategies...)
		}
	}
	return nil
}

// firstMatch runs strategies in order and stops at the first hit.
func firstMatch(text string, strategies []Strategy) (value, strategy string, ok bool) {
	for _, s := range strategies {
		if v, found := s.Find(text); found {
			return v, s.Name, true
		}
	}
	return "", "", false
}

// lastPageSignature scans paragraphs from the last one back to the first and
// returns the first operator name found. The signature closes the document, so
// the bottom-most match is the operator.
func lastPageSignature(paragraphs []string) (string, bool) {
	for i := len(paragraphs) - 1; i >= 0; i-- {
		if v, ok := operatorLastPageSignature.Find(paragraphs[i]); ok {
			return v, true
		}
	}
	return "", false
}
