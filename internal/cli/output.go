package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/timeindex"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // No data, verification or scenario failure
	ExitCommandError = 2 // Command error (bad arguments, unreadable log, etc.)
)

// Error codes reported in JSON output.
const (
	CodeMalformedRecord    = "E001"
	CodeNonMonotonicWrite  = "E002"
	CodeCorruptIndex       = "E003"
	CodeStorageUnavailable = "E004"
	CodeEmpty              = "E005"
	CodeOutOfBounds        = "E006"
	CodeInvalidInput       = "E007"
	CodeTestFailed         = "E_TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the error was already written to the output, so
	// main should not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode maps a store error to its stable CLI code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, timeindex.ErrMalformedRecord):
		return CodeMalformedRecord
	case errors.Is(err, timeindex.ErrNonMonotonicWrite):
		return CodeNonMonotonicWrite
	case errors.Is(err, timeindex.ErrCorruptIndex):
		return CodeCorruptIndex
	case errors.Is(err, timeindex.ErrStorageUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, timeindex.ErrEmpty):
		return CodeEmpty
	case errors.Is(err, timeindex.ErrOutOfBounds):
		return CodeOutOfBounds
	default:
		return CodeInvalidInput
	}
}

// exitCodeFor classifies a store error: "no data" is a plain failure,
// everything else a command error.
func exitCodeFor(err error) int {
	if timeindex.IsNoData(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Kind    string `json:"kind,omitempty"`    // "out_of_bounds", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs data. In text mode text is printed instead of data.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs err with its code and returns it as an ExitError with the
// given exit code, for the command to return.
func (f *OutputFormatter) Error(exitCode int, message string, err error) error {
	code := ErrorCode(err)
	if f.Format == "json" {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Kind:    timeindex.KindName(err),
				Message: err.Error(),
			},
		}); encErr != nil {
			return encErr
		}
	} else if timeindex.IsNoData(err) {
		fmt.Fprintf(f.Writer, "no data: %s\n", err)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, err)
	}
	exitErr := WrapExitError(exitCode, message, err)
	exitErr.Reported = true
	return exitErr
}
