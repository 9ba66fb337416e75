package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error categories. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrExtraction  = errors.New("extraction failed")
	ErrNoTemplate  = errors.New("no template for operator")
	ErrIOFailure   = errors.New("document io failure")
	ErrMappingLoad = errors.New("operator mapping load failed")
	ErrStructural  = errors.New("case folder structure invalid")
)

// Required field names reported in ExtractionError.Missing.
const (
	FieldDebtorName   = "debtor_name"
	FieldIDNumber     = "id_number"
	FieldCaseNumber   = "case_number"
	FieldOperatorName = "operator_name"
)

// ExtractionError lists every required field that could not be extracted.
type ExtractionError struct {
	Source  string
	Missing []string
}

func (e *ExtractionError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	if e.Source != "" {
		return fmt.Sprintf("%v: %s: missing %s", ErrExtraction, e.Source, strings.Join(missing, ", "))
	}
	return fmt.Sprintf("%v: missing %s", ErrExtraction, strings.Join(missing, ", "))
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// GenerationKind distinguishes the two ways generation can fail.
type GenerationKind int

const (
	GenerationNoTemplate GenerationKind = iota + 1
	GenerationIOFailure
)

// GenerationError is returned by the notification generator.
type GenerationError struct {
	Kind     GenerationKind
	Operator string
	Path     string
	Cause    error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case GenerationNoTemplate:
		return fmt.Sprintf("%v: %q", ErrNoTemplate, e.Operator)
	default:
		if e.Path != "" {
			return fmt.Sprintf("%v: %s: %v", ErrIOFailure, e.Path, e.Cause)
		}
		return fmt.Sprintf("%v: %v", ErrIOFailure, e.Cause)
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) Is(target error) bool {
	switch e.Kind {
	case GenerationNoTemplate:
		return target == ErrNoTemplate
	default:
		return target == ErrIOFailure
	}
}

// NewNoTemplateError reports that no mapping entry resolved for operator.
func NewNoTemplateError(operator string) *GenerationError {
	return &GenerationError{Kind: GenerationNoTemplate, Operator: operator}
}

// NewIOFailure wraps a read or write failure on path.
func NewIOFailure(path string, cause error) *GenerationError {
	return &GenerationError{Kind: GenerationIOFailure, Path: path, Cause: cause}
}

// StructuralError reports a case folder that does not have the expected layout.
type StructuralError struct {
	Case   string
	Reason string
	Cause  error
}

func (e *StructuralError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %s: %v", ErrStructural, e.Case, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%v: %s: %s", ErrStructural, e.Case, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return e.Cause
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}
