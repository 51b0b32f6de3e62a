// Package errors provides structured error handling for AutoDoc.
// Errors carry a code, context and a captured stack trace.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound      Code = "E101"
	CodeUnsupportedFormat Code = "E102"
	CodeEmptyDataset      Code = "E103"
	CodeParseFailed       Code = "E104"

	// Analysis errors (2xx)
	CodeChartFailed Code = "E201"

	// Output errors (3xx)
	CodeRenderFailed Code = "E301"
	CodeWriteFailed  Code = "E302"

	// Publishing errors (4xx)
	CodePublishFailed Code = "E401"

	// Narrative errors (5xx). Never fatal.
	CodeSummaryFailed Code = "E501"

	// Configuration errors (6xx)
	CodeInvalidConfig Code = "E601"

	CodeUnknown Code = "E999"
)

// Sentinels for use with errors.Is. Matching is by code.
var (
	ErrFileNotFound      = &AutoDocError{Code: CodeFileNotFound, Message: "file not found"}
	ErrUnsupportedFormat = &AutoDocError{Code: CodeUnsupportedFormat, Message: "unsupported file type"}
	ErrEmptyDataset      = &AutoDocError{Code: CodeEmptyDataset, Message: "loaded dataset is empty"}
)

// AutoDocError is the base error type for all AutoDoc errors.
type AutoDocError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *AutoDocError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *AutoDocError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *AutoDocError) Is(target error) bool {
	if t, ok := target.(*AutoDocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *AutoDocError) WithContext(key string, value interface{}) *AutoDocError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AutoDocError.
func New(code Code, message string) *AutoDocError {
	return &AutoDocError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *AutoDocError {
	if err == nil {
		return nil
	}

	return &AutoDocError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AutoDocError {
	if err == nil {
		return nil
	}

	return &AutoDocError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *AutoDocError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *AutoDocError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// UnsupportedFormat reports an unrecognized file extension.
func UnsupportedFormat(path, ext string) *AutoDocError {
	return New(CodeUnsupportedFormat, "unsupported file type, use .csv, .xlsx, .xls or .json").
		WithContext("path", path).
		WithContext("ext", ext)
}

// EmptyDataset reports a file that parsed to zero rows.
func EmptyDataset(path string) *AutoDocError {
	return New(CodeEmptyDataset, "loaded dataset is empty").WithContext("path", path)
}

// ParseError wraps a format parser failure.
func ParseError(format, path string, err error) *AutoDocError {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("path", path)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var adErr *AutoDocError
	if errors.As(err, &adErr) {
		return adErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var adErr *AutoDocError
	if errors.As(err, &adErr) {
		return adErr.Code
	}
	return CodeUnknown
}

// IsInputError reports whether err was raised while loading the input file.
func IsInputError(err error) bool {
	switch GetCode(err) {
	case CodeFileNotFound, CodeUnsupportedFormat, CodeEmptyDataset, CodeParseFailed:
		return true
	default:
		return false
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
