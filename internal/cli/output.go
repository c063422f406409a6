package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/notify"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the backend or a manager rejected the action
	ExitCommandError = 2 // bad flags, arguments or configuration
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text, JSON or YAML.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the envelope of the json and yaml formats.
type CLIResponse struct {
	Status  string          `json:"status"            yaml:"status"`
	Data    any             `json:"data,omitempty"    yaml:"data,omitempty"`
	Error   *CLIError       `json:"error,omitempty"   yaml:"error,omitempty"`
	Notices []notify.Notice `json:"notices,omitempty" yaml:"notices,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	switch f.Format {
	case FormatJSON:
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case FormatYAML:
		// Round-trip through JSON so YAML keys match the JSON field names.
		raw, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", f.Format)
}

// Success writes data. In text mode render draws it; a nil render prints
// data with fmt.
func (f *OutputFormatter) Success(data any, notices []notify.Notice, render func(io.Writer) error) error {
	if f.Format != FormatText {
		return f.encode(CLIResponse{Status: "ok", Data: data, Notices: notices})
	}
	f.textNotices(notices)
	if render != nil {
		return render(f.Writer)
	}
	if data != nil {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return nil
}

func (f *OutputFormatter) Error(code, message string, notices []notify.Notice) error {
	if f.Format != FormatText {
		return f.encode(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message}, Notices: notices})
	}
	_, err := fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", code, message)
	return err
}

func (f *OutputFormatter) textNotices(notices []notify.Notice) {
	for _, n := range notices {
		if n.Level == notify.LevelError {
			continue
		}
		fmt.Fprintf(f.errWriter(), "[%s] %s\n", n.Level, n.Message)
	}
}

// errorCode names the class of a manager error.
func errorCode(err error) string {
	switch httpserver.StatusOf(err) {
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "validation"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "backend"
}
