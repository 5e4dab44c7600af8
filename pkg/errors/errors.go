// Package errors defines the categorized error type used across the
// reconciliation engine. Errors carry a category, a specific code, an
// optional suggestion for the operator, and a context map, on top of a
// wrapped cause with its stack trace.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents the broad classes of engine errors
type ErrorCategory string

const (
	CategoryIngestion     ErrorCategory = "ingestion"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryStrategy      ErrorCategory = "strategy"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFeed          ErrorCategory = "feed"
	CategoryReporting     ErrorCategory = "reporting"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Ingestion errors
	CodeMissingIdentifier ErrorCode = "missing_identifier"
	CodeInvalidAmount     ErrorCode = "invalid_amount"
	CodeInvalidDate       ErrorCode = "invalid_date"
	CodeInvalidRecord     ErrorCode = "invalid_record"

	// Conflict errors
	CodeRunInProgress   ErrorCode = "run_in_progress"
	CodeInvalidState    ErrorCode = "invalid_state"
	CodeIngestionLocked ErrorCode = "ingestion_locked"

	// Strategy errors
	CodeMatchingFailed   ErrorCode = "matching_failed"
	CodeAnalysisFailed   ErrorCode = "analysis_failed"
	CodeResolutionFailed ErrorCode = "resolution_failed"
	CodePipelinePanic    ErrorCode = "pipeline_panic"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Feed errors
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"

	// Reporting errors
	CodeNoSummary         ErrorCode = "no_summary"
	CodeUnknownReportType ErrorCode = "unknown_report_type"
	CodeReportWrite       ErrorCode = "report_write"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all reconciliation engine errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate process exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryFeed:
		return 2
	case CategoryIngestion:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryConflict:
		return 5
	case CategoryStrategy, CategoryReporting, CategoryInternal:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// IngestionError creates a record-ingestion validation error
func IngestionError(code ErrorCode, field string, value interface{}, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingIdentifier:
		message = fmt.Sprintf("record is missing required identifier '%s'", field)
		suggestion = "every record must carry its unique identifier"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be valid decimal numbers (e.g. '99.99')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format YYYY-MM-DD or RFC3339"
	default:
		message = fmt.Sprintf("invalid record data in field '%s': %v", field, value)
		suggestion = "check the record fields and formats"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryIngestion, code, message)
	} else {
		result = New(CategoryIngestion, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConflictError creates a lifecycle/concurrency conflict error
func ConflictError(code ErrorCode, currentState string) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeRunInProgress:
		message = fmt.Sprintf("a reconciliation run is already in progress (state: %s)", currentState)
		suggestion = "await the in-flight run before starting another"
	case CodeIngestionLocked:
		message = fmt.Sprintf("records cannot be ingested while a run is processing (state: %s)", currentState)
		suggestion = "ingest before starting a run, or await completion"
	case CodeInvalidState:
		message = fmt.Sprintf("operation not valid in state %s", currentState)
		suggestion = "check the engine state before retrying"
	default:
		message = fmt.Sprintf("engine state conflict (state: %s)", currentState)
		suggestion = "await the current operation and retry"
	}

	return New(CategoryConflict, code, message).
		WithSuggestion(suggestion).
		WithContext("state", currentState)
}

// StrategyError creates a strategy-execution error
func StrategyError(code ErrorCode, stage string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeMatchingFailed:
		message = fmt.Sprintf("matching strategy failed during %s", stage)
		suggestion = "check strategy configuration and input data quality"
	case CodeAnalysisFailed:
		message = fmt.Sprintf("discrepancy analysis failed during %s", stage)
		suggestion = "verify the ingested record sets are consistent"
	case CodeResolutionFailed:
		message = fmt.Sprintf("resolution strategy failed during %s", stage)
		suggestion = "check resolution rules and settings"
	case CodePipelinePanic:
		message = fmt.Sprintf("pipeline panicked during %s", stage)
		suggestion = "this is a bug in a strategy implementation; start a new run to retry"
	default:
		message = fmt.Sprintf("strategy error during %s", stage)
		suggestion = "review the strategy and its configuration"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryStrategy, code, message)
	} else {
		result = New(CategoryStrategy, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("stage", stage)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the settings documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, env or config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// FeedError creates a feed/file related error
func FeedError(code ErrorCode, path string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("feed file not found: %s", path)
		suggestion = "check the file path"
	case CodeInvalidFormat:
		message = fmt.Sprintf("feed file has invalid format: %s", path)
		suggestion = "ensure the file is a valid CSV with the expected columns"
	case CodeMissingColumn:
		message = fmt.Sprintf("feed file is missing a required column: %s", path)
		suggestion = "check the header row against the feed configuration"
	default:
		message = fmt.Sprintf("feed error: %s", path)
		suggestion = "check the feed file and configuration"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryFeed, code, message)
	} else {
		result = New(CategoryFeed, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// ReportingError creates a reporting-related error
func ReportingError(code ErrorCode, detail string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeNoSummary:
		message = "no reconciliation summary available"
		suggestion = "run a reconciliation before generating reports"
	case CodeUnknownReportType:
		message = fmt.Sprintf("unknown report type: %s", detail)
		suggestion = "use one of: summary, detailed, discrepancy, exception, trend, audit_trail, performance"
	default:
		message = fmt.Sprintf("reporting error: %s", detail)
		suggestion = "check the report request"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryReporting, code, message)
	} else {
		result = New(CategoryReporting, code, message)
	}

	return result.WithSuggestion(suggestion)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *EngineError {
	message := fmt.Sprintf("unexpected internal error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.WithContext("operation", operation)
}

// IsCategory checks whether err is an EngineError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	engineErr, ok := AsEngineError(err)
	return ok && engineErr.Category == category
}

// IsCode checks whether err is an EngineError with the given code
func IsCode(err error, code ErrorCode) bool {
	engineErr, ok := AsEngineError(err)
	return ok && engineErr.Code == code
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	for err != nil {
		if engineErr, ok := err.(*EngineError); ok {
			return engineErr, true
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// FormatUserMessage renders an error for operator-facing output
func FormatUserMessage(err error) string {
	engineErr, ok := AsEngineError(err)
	if !ok {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Error [%s/%s]: %s", engineErr.Category, engineErr.Code, engineErr.Message))
	if engineErr.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  suggestion: %s", engineErr.Suggestion))
	}
	if engineErr.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", engineErr.Cause))
	}
	return b.String()
}
