// Package errors provides severity-aware error types for the coverage pipeline.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PipelineError is a structured error with context about the failing source
// or column. Recoverable errors describe single-row damage; everything else
// aborts the run.
type PipelineError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Source      string   `json:"source,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *PipelineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %s (source: %s)", e.Severity, e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeMissingSourceFile = "MISSING_SOURCE_FILE"
	ErrCodeMissingColumn     = "MISSING_COLUMN"
	ErrCodeConfiguration     = "CONFIGURATION"
	ErrCodeMalformedValue    = "MALFORMED_VALUE"
	ErrCodeEmptyJoin         = "EMPTY_JOIN"
)

// NewMissingSourceFileError creates a fatal error for an absent raw input file.
func NewMissingSourceFileError(source, path string) *PipelineError {
	return &PipelineError{
		Code:        ErrCodeMissingSourceFile,
		Message:     fmt.Sprintf("required input file not found: %s", path),
		Severity:    SeverityFatal,
		Source:      source,
		Recoverable: false,
	}
}

// NewMissingColumnError creates a fatal error for expected columns absent
// from a source after resolution.
func NewMissingColumnError(source string, columns []string) *PipelineError {
	return &PipelineError{
		Code:        ErrCodeMissingColumn,
		Message:     fmt.Sprintf("expected columns missing: %v", columns),
		Severity:    SeverityFatal,
		Source:      source,
		Recoverable: false,
	}
}

// NewConfigurationError creates a fatal error for unresolvable column labels.
func NewConfigurationError(source string, labels []string) *PipelineError {
	return &PipelineError{
		Code:        ErrCodeConfiguration,
		Message:     fmt.Sprintf("cannot resolve required labels: %v", labels),
		Severity:    SeverityFatal,
		Source:      source,
		Recoverable: false,
	}
}
