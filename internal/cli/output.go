package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes.
const (
	ExitSuccess      = 0 // Successful execution, including usage and informational modes
	ExitFailure      = 1 // Check failure (test vector mismatch, failed suite) or runtime error
	ExitCommandError = 2 // Command error (ambiguous or conflicting flags, bad config, bad provider id)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the failure is already part of the JSON
	// response, so no separate error document is written.
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
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for progress and diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON document written in json format.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	RunID  string    `json:"run_id,omitempty"` // set when the run was recorded
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON reports whether the formatter writes JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data as a JSON response. Text output is written by the
// modes themselves as they run, so Success is a no-op in text format.
func (f *OutputFormatter) Success(runID string, data any) error {
	if !f.JSON() {
		return nil
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{
		Status: "ok",
		RunID:  runID,
		Data:   data,
	})
}

// Error writes err in the configured format.
func (f *OutputFormatter) Error(err error) {
	if f.JSON() {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    GetExitCode(err),
				Message: err.Error(),
			},
		})
		return
	}
	fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// ProgressWriter returns where mode progress lines go: stdout for text,
// the error writer for JSON so the document on stdout stays parseable.
func (f *OutputFormatter) ProgressWriter() io.Writer {
	if f.JSON() {
		return f.GetErrWriter()
	}
	return f.Writer
}
