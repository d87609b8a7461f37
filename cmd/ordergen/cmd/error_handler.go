package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"astob-order-generator/pkg/errors"
	"astob-order-generator/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if genErr, ok := errors.AsGeneratorError(err); ok {
		return h.handleGeneratorError(genErr)
	}

	return h.handleGenericError(err)
}

// handleGeneratorError handles GeneratorError with detailed context
func (h *CLIErrorHandler) handleGeneratorError(err *errors.GeneratorError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-GeneratorError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryTable:
		return `Input format help:
• Supported inputs are xlsx workbooks and delimited text files
• Legacy .xls workbooks are not supported: re-save the file as .xlsx
• Text files may use UTF-8, Windows-1250 or ISO-8859-2 encoding
• Use ';', ',', tab or '|' as the field delimiter`

	case errors.CategorySchema:
		return `Column layout help:
• Columns are located by header name, with common synonyms accepted
• Check that the listed header exists in the input file
• Header matching ignores case, diacritics and punctuation
• Custom header names can be added via the aliases configuration`

	case errors.CategoryReconcile:
		return `Reconciliation help:
• Verify the ASTOB and KEY files cover the same terminals
• Check that transaction dates are present and parsable
• Only clients with a positive transaction total produce a document`

	case errors.CategoryTemplate:
		return `Template help:
• The template must contain every placeholder token in braces
• Check the token spelling, including diacritics-free Romanian labels
• Use 'ordergen generate --help' for the expected template layout`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'ordergen generate --help' to see all available options`

	default:
		return `For more help:
• Use 'ordergen --help' for general help
• Use 'ordergen generate --help' for command-specific help
• Report bugs or ask for help on the project repository`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
