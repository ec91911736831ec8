package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/flatkv/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected write, failed scenario, false has
	ExitCommandError = 2 // Command error (bad arguments, database not found, etc.)
)

// Error codes reported in CLI responses.
const (
	CodeInvalidQuery  = "E001"
	CodeRejected      = "E002"
	CodeStoreFailure  = "E003"
	CodeInvalidInput  = "E004"
	CodeRecordFailure = "E005"
	CodeNoMatch       = "E006"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	NoColor   bool
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
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode data is printed with fmt.Println.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	red := f.color(color.FgRed, color.Bold)
	fmt.Fprintf(f.Writer, "%s %s\n", red.Sprintf("Error [%s]:", code), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Entries outputs decoded entries. Text mode prints one id=value line per
// entry, with container children indented below their parent.
func (f *OutputFormatter) Entries(entries []ir.Entry) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: entries})
	}
	for _, e := range entries {
		f.writeEntry(e, "")
	}
	return nil
}

func (f *OutputFormatter) writeEntry(e ir.Entry, indent string) {
	id := f.color(color.FgCyan)
	kind := f.color(color.Faint)

	switch e.Kind() {
	case ir.KindContainer:
		fmt.Fprintf(f.Writer, "%s%s %s\n", indent, id.Sprint(e.ID), kind.Sprint("(container)"))
		children, _ := e.Children()
		for _, c := range children {
			f.writeEntry(c, indent+"  ")
		}
	case ir.KindJSON:
		v, _ := e.JSON()
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			data = []byte(fmt.Sprint(e.Interface()))
		}
		fmt.Fprintf(f.Writer, "%s%s=%s %s\n", indent, id.Sprint(e.ID), data, kind.Sprint("(json)"))
	default:
		s, _ := e.Scalar()
		fmt.Fprintf(f.Writer, "%s%s=%s\n", indent, id.Sprint(e.ID), s)
	}
}

// Status prints a one-line success message in text mode, or data in JSON mode.
func (f *OutputFormatter) Status(message string, data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintf(f.Writer, "%s %s\n", f.color(color.FgGreen).Sprint("✓"), message)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// color returns a color.Color honouring NoColor regardless of the
// package-level detection in fatih/color.
func (f *OutputFormatter) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.NoColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}
