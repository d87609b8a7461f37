// Package errors defines the error taxonomy shared by every stage of the
// order-generation pipeline.
//
// All failures that abort an invocation are represented by a single
// *GeneratorError carrying a category, a machine-readable code, a context
// map for diagnostics and an optional user-facing suggestion. None of them
// are retried internally: a malformed input or template fails identically
// on retry, so errors propagate unchanged to the invocation boundary.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the pipeline stage that raised them.
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryTable         ErrorCategory = "table"
	CategorySchema        ErrorCategory = "schema"
	CategoryReconcile     ErrorCategory = "reconcile"
	CategoryTemplate      ErrorCategory = "template"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies the specific failure within a category.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileWrite      ErrorCode = "file_write"

	// Table errors
	CodeUnreadableTable ErrorCode = "unreadable_table"

	// Schema errors
	CodeMissingColumn ErrorCode = "missing_column"

	// Reconciliation errors: the three distinct empty-result causes.
	CodeNoTerminalMatches ErrorCode = "no_terminal_matches"
	CodeNoValidTimestamps ErrorCode = "no_valid_timestamps"
	CodeNonPositiveTotals ErrorCode = "non_positive_totals"

	// Template errors
	CodeMissingToken ErrorCode = "missing_token"
	CodeTemplateRead ErrorCode = "template_read"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Context provides additional information about the error.
type Context map[string]interface{}

// GeneratorError is the base error type for all application errors.
type GeneratorError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *GeneratorError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *GeneratorError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns the process exit code for the error category.
func (e *GeneratorError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryTable, CategorySchema:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconcile, CategoryTemplate:
		return 5
	case CategoryInternal:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *GeneratorError) WithContext(key string, value interface{}) *GeneratorError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *GeneratorError) WithSuggestion(suggestion string) *GeneratorError {
	e.Suggestion = suggestion
	return e
}

// New creates a new GeneratorError.
func New(category ErrorCategory, code ErrorCode, message string) *GeneratorError {
	return &GeneratorError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with GeneratorError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *GeneratorError {
	if err == nil {
		return nil
	}
	return &GeneratorError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error.
func FileError(code ErrorCode, path string, err error) *GeneratorError {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileWrite:
		message = fmt.Sprintf("failed to write file: %s", path)
		suggestion = "check the output directory exists and is writable"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *GeneratorError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// UnreadableTableError reports that input bytes could not be parsed as any
// supported tabular format. The attempts slice holds one human-readable
// failure per format/encoding tried, in the order they were tried.
func UnreadableTableError(name string, attempts []string) *GeneratorError {
	return New(
		CategoryTable,
		CodeUnreadableTable,
		fmt.Sprintf("input %q could not be read as a spreadsheet or delimited text: %s",
			name, strings.Join(attempts, "; ")),
	).
		WithSuggestion("save the file as .xlsx or as UTF-8 CSV and try again").
		WithContext("input", name).
		WithContext("attempts", attempts)
}

// SchemaError reports that a required logical column could not be resolved
// against the actual headers of an input table.
func SchemaError(field string, candidates, headers []string) *GeneratorError {
	return New(
		CategorySchema,
		CodeMissingColumn,
		fmt.Sprintf("column for %q not found: tried %v in %v", field, candidates, headers),
	).
		WithSuggestion("rename the column to one of the accepted headers or extend the alias configuration").
		WithContext("field", field).
		WithContext("candidates", candidates).
		WithContext("headers", headers)
}

// EmptyResultError reports that reconciliation produced zero qualifying
// client groups. The code distinguishes the three user-actionable causes.
func EmptyResultError(code ErrorCode) *GeneratorError {
	var message, suggestion string
	switch code {
	case CodeNoTerminalMatches:
		message = "no terminal id from the transaction log matches the reference table"
		suggestion = "verify that both files cover the same terminals and that terminal ids are not truncated"
	case CodeNoValidTimestamps:
		message = "no transaction row carries a parsable timestamp"
		suggestion = "check the date and time columns of the transaction log"
	case CodeNonPositiveTotals:
		message = "every client total is zero or negative after reconciliation"
		suggestion = "check the amount column; only clients with a positive total produce a document"
	default:
		message = "reconciliation produced no qualifying client groups"
		suggestion = "review the input data"
	}
	return New(CategoryReconcile, code, message).WithSuggestion(suggestion)
}

// TemplateLayoutError reports that the template document is missing one or
// more required placeholder tokens.
func TemplateLayoutError(missing []string) *GeneratorError {
	return New(
		CategoryTemplate,
		CodeMissingToken,
		fmt.Sprintf("template is missing required placeholder tokens: %s", strings.Join(missing, ", ")),
	).
		WithSuggestion("add the missing tokens to the template or supply a different template").
		WithContext("missing_tokens", missing)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(setting string, value interface{}, err error) *GeneratorError {
	message := fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
	var result *GeneratorError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, CodeInvalidConfig, message)
	} else {
		result = New(CategoryConfiguration, CodeInvalidConfig, message)
	}
	return result.
		WithSuggestion("check the configuration documentation for valid values").
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error.
func InternalError(operation string, err error) *GeneratorError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	var result *GeneratorError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}
	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// IsGeneratorError checks if an error is a GeneratorError.
func IsGeneratorError(err error) bool {
	_, ok := err.(*GeneratorError)
	return ok
}

// AsGeneratorError extracts a GeneratorError from an error chain.
func AsGeneratorError(err error) (*GeneratorError, bool) {
	var genErr *GeneratorError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// HasCode reports whether err is a GeneratorError with the given code.
func HasCode(err error, code ErrorCode) bool {
	if genErr, ok := AsGeneratorError(err); ok {
		return genErr.Code == code
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already a GeneratorError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *GeneratorError {
	if err == nil {
		return nil
	}
	if genErr, ok := AsGeneratorError(err); ok {
		return genErr
	}
	return Wrap(err, category, code, message)
}
