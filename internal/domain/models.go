package domain

import (
	"context"
	"time"
)

// CaseExtractor turns an acceptance document into a CaseRecord.
type CaseExtractor interface {
	ExtractFile(path string) (*CaseRecord, error)
}

// NotificationGenerator writes the notification for a record into a folder.
type NotificationGenerator interface {
	Generate(ctx context.Context, record *CaseRecord, outputFolder string) (*GenerationResult, error)
}

// TemplateResolver finds the template registered for an operator.
type TemplateResolver interface {
	Resolve(operatorName string) (TemplateMatch, bool)
}

// CaseRecord holds the fields extracted from one acceptance document.
type CaseRecord struct {
	DebtorName   string    `json:"debtor_name"`
	IDNumber     string    `json:"id_number"`
	CaseNumber   string    `json:"case_number"`
	OperatorName string    `json:"operator_name"`
	FilingDate   string    `json:"filing_date,omitempty"`
	HearingDate  string    `json:"hearing_date,omitempty"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// HasFilingDate reports whether the optional filing date was found.
func (r *CaseRecord) HasFilingDate() bool {
	return r.FilingDate != ""
}

// HasHearingDate reports whether the optional hearing date was found.
func (r *CaseRecord) HasHearingDate() bool {
	return r.HearingDate != ""
}

// Replacement is a literal marker and the text that replaces it.
type Replacement struct {
	Marker string
	Text   string
}

// Match is one occurrence of a marker inside a piece of text.
type Match struct {
	Marker      string // literal marker found
	Replacement string // text to put in its place
	StartPos    int    // byte offset of the first marker byte
	EndPos      int    // byte offset just past the marker
}

// MatchKind tells how an operator name matched a mapping entry.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
)

// TemplateMatch is the result of resolving an operator name.
type TemplateMatch struct {
	Operator     string    // key of the mapping entry that matched
	TemplatePath string    // absolute path of the template document
	Kind         MatchKind // exact or substring
}

// GenerationResult describes a notification that was written.
type GenerationResult struct {
	OutputPath   string
	TemplatePath string
	Operator     string
	MatchKind    MatchKind
	Replacements int
}

// CaseStatus is the final state of one case folder in a batch run.
type CaseStatus string

const (
	StatusProcessed CaseStatus = "processed"
	StatusSkipped   CaseStatus = "skipped"
	StatusFailed    CaseStatus = "failed"
)

// CaseOutcome records what happened to one case folder.
type CaseOutcome struct {
	Name       string
	Status     CaseStatus
	Reason     string
	OutputPath string
	Duration   time.Duration
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	RunID     string
	Root      string
	Processed int
	Skipped   int
	Failed    int
	Cases     []CaseOutcome
	StartedAt time.Time
	Duration  time.Duration
}

// Total returns the number of case folders that were counted.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped + r.Failed
}

// Add counts an outcome and keeps it in the per-case list.
func (r *BatchResult) Add(outcome CaseOutcome) {
	switch outcome.Status {
	case StatusProcessed:
		r.Processed++
	case StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Cases = append(r.Cases, outcome)
}
