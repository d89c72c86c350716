package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data (graph documents, builder calls)
	ErrorTypeValidation
	// Database errors - backend connection or query failures
	ErrorTypeDatabase
	// Network errors - network connectivity issues
	ErrorTypeNetwork
	// FileSystem errors - file I/O failures
	ErrorTypeFileSystem
	// NotFound errors - unknown handle, name or original ID
	ErrorTypeNotFound
	// Unsupported errors - operation gated by a capability flag that is off
	ErrorTypeUnsupported
	// TypeMismatch errors - datatype or bound type does not match
	ErrorTypeTypeMismatch
	// Conflict errors - duplicate names or original IDs
	ErrorTypeConflict
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - expected outcome of a lookup, caller decides
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, usually a grin sentinel
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair shown by DetailedString
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches another *Error of the same type. Sentinel causes are matched
// through Unwrap by the standard library.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders severity, type, cause, context (sorted by key) and
// the captured stack
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Type, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}
	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "Stack trace:\n%s\n", e.StackTrace)
	}
	return sb.String()
}

var typeNames = [...]string{
	ErrorTypeConfig:       "CONFIG",
	ErrorTypeValidation:   "VALIDATION",
	ErrorTypeDatabase:     "DATABASE",
	ErrorTypeNetwork:      "NETWORK",
	ErrorTypeFileSystem:   "FILESYSTEM",
	ErrorTypeNotFound:     "NOT_FOUND",
	ErrorTypeUnsupported:  "UNSUPPORTED",
	ErrorTypeTypeMismatch: "TYPE_MISMATCH",
	ErrorTypeConflict:     "CONFLICT",
	ErrorTypeInternal:     "INTERNAL",
}

func (t ErrorType) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// TypeName returns the short label of an error type, used as a metric label
func TypeName(t ErrorType) string {
	return strings.ToLower(t.String())
}

var severityNames = [...]string{
	SeverityLow:      "LOW",
	SeverityMedium:   "MEDIUM",
	SeverityHigh:     "HIGH",
	SeverityCritical: "CRITICAL",
}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

const maxStackDepth = 10

// captureStackTrace records up to maxStackDepth frames above its caller's
// caller
func captureStackTrace(skip int) string {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "  %s:%d %s\n", f.File, f.Line, f.Function)
		if !more {
			break
		}
	}
	return sb.String()
}

// New creates an error of the given type and severity
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		StackTrace: captureStackTrace(2),
	}
}

// Wrap attaches type, severity and message to err. Wrap(nil, ...) is nil.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(2),
	}
}

// Lookup outcomes (not found, unsupported, type mismatch) are hot-path
// results, so they skip the stack capture.
func lookup(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:     errType,
		Severity: SeverityLow,
		Message:  message,
		Cause:    err,
	}
}

// ConfigError reports missing or invalid configuration
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ValidationError reports bad input: graph documents, snapshots, builder calls
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// DatabaseError wraps a backend query or transaction failure
func DatabaseError(err error, message string) *Error {
	return Wrap(err, ErrorTypeDatabase, SeverityCritical, message)
}

func DatabaseErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeDatabase, SeverityCritical, fmt.Sprintf(format, args...))
}

// NetworkErrorf wraps a failure to reach a remote backend
func NetworkErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityHigh, fmt.Sprintf(format, args...))
}

// FileSystemError wraps a file I/O failure
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, message)
}

func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

// NotFoundf wraps a not-found sentinel
func NotFoundf(sentinel error, format string, args ...interface{}) *Error {
	return lookup(sentinel, ErrorTypeNotFound, fmt.Sprintf(format, args...))
}

// Unsupportedf wraps the sentinel of a disabled feature group
func Unsupportedf(sentinel error, format string, args ...interface{}) *Error {
	return lookup(sentinel, ErrorTypeUnsupported, fmt.Sprintf(format, args...))
}

// TypeMismatchf wraps a datatype or bound-type mismatch sentinel
func TypeMismatchf(sentinel error, format string, args ...interface{}) *Error {
	return lookup(sentinel, ErrorTypeTypeMismatch, fmt.Sprintf(format, args...))
}

// Conflictf wraps a duplicate name or original-ID sentinel
func Conflictf(sentinel error, format string, args ...interface{}) *Error {
	return Wrap(sentinel, ErrorTypeConflict, SeverityHigh, fmt.Sprintf(format, args...))
}

// InternalError reports unexpected internal state
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

func asError(err error) (*Error, bool) {
	var e *Error
	if err == nil || !stderrors.As(err, &e) {
		return nil, false
	}
	return e, true
}

// IsFatal reports whether err carries critical severity
func IsFatal(err error) bool {
	e, ok := asError(err)
	return ok && e.IsFatal()
}

// GetSeverity returns the severity of err. Plain errors count as medium,
// nil as low.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	if e, ok := asError(err); ok {
		return e.Severity
	}
	return SeverityMedium
}

// GetType returns the type of err; anything unstructured is internal
func GetType(err error) ErrorType {
	if e, ok := asError(err); ok {
		return e.Type
	}
	return ErrorTypeInternal
}
