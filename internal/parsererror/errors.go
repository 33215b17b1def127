// Package parsererror defines the typed errors surfaced by the ingestion pipeline.
// Callers match them with errors.As.
package parsererror

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable reports that no classifier artifact could be loaded.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// ErrNotPDF reports content without the PDF header.
var ErrNotPDF = errors.New("content is not a PDF document")

// ParseError represents a value that could not be parsed.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidFormatError means the input is not in a format the pipeline accepts.
type InvalidFormatError struct {
	FilePath             string
	ExpectedFormat       string
	ActualContentSnippet string
	Msg                  string
}

func (e *InvalidFormatError) Error() string {
	if e.ActualContentSnippet != "" {
		return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s. Content snippet: '%s'",
			e.FilePath, e.Msg, e.ExpectedFormat, e.ActualContentSnippet)
	}
	return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s",
		e.FilePath, e.Msg, e.ExpectedFormat)
}

// ExtractionError is raised when the PDF backend cannot read a document or a page.
// Page is zero when the failure is not tied to a single page.
type ExtractionError struct {
	FilePath string
	Page     int
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("table extraction failed for '%s' on page %d: %v", e.FilePath, e.Page, e.Err)
	}
	return fmt.Sprintf("table extraction failed for '%s': %v", e.FilePath, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed batch write. Nothing from the batch was stored.
type PersistenceError struct {
	Operation string
	Count     int
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed for %d transactions: %v", e.Operation, e.Count, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CategorizationError represents a categorization failure. The predictor logs these
// and falls back to a default category; they never abort an import.
type CategorizationError struct {
	Description string
	Strategy    string
	Err         error
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("categorization failed for %q using %s: %v",
		e.Description, e.Strategy, e.Err)
}

func (e *CategorizationError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}
