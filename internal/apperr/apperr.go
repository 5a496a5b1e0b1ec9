// Package apperr defines the typed errors raised while generating a project
// and the serializable payload they are reported as.
//
// Every error carries a machine-readable Code. Sentinels such as
// ErrProjectNotReady match any *Error with the same code, so callers can write:
//
//	if errors.Is(err, apperr.ErrProjectNotReady) {
//	    // poll again later
//	}
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the kind of a generation error
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeFeatureNotFound    Code = "FEATURE_NOT_FOUND"
	CodeTemplate           Code = "TEMPLATE_ERROR"
	CodeFileSystem         Code = "FILESYSTEM_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
	CodeGenerationNotFound Code = "GENERATION_NOT_FOUND"
	CodeProjectNotReady    Code = "PROJECT_NOT_READY"
	CodeProjectDataMissing Code = "PROJECT_DATA_MISSING"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

// Sentinels for errors.Is. They match on Code only.
var (
	ErrValidation         = &Error{Code: CodeValidation}
	ErrFeatureNotFound    = &Error{Code: CodeFeatureNotFound}
	ErrTemplate           = &Error{Code: CodeTemplate}
	ErrFileSystem         = &Error{Code: CodeFileSystem}
	ErrDependency         = &Error{Code: CodeDependency}
	ErrGenerationNotFound = &Error{Code: CodeGenerationNotFound}
	ErrProjectNotReady    = &Error{Code: CodeProjectNotReady}
	ErrProjectDataMissing = &Error{Code: CodeProjectDataMissing}
	ErrUnknown            = &Error{Code: CodeUnknown}
)

// Error is a typed generation error
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, msg string, details map[string]any, cause error) *Error {
	return &Error{Code: code, Message: msg, Details: details, Err: cause}
}

// Validation reports a malformed generation request
func Validation(msg string, details map[string]any) *Error {
	return newError(CodeValidation, msg, details, nil)
}

// FeatureNotFound reports a feature id with no template for the architecture
func FeatureNotFound(featureName, architecture string) *Error {
	return newError(CodeFeatureNotFound,
		fmt.Sprintf("feature %q not found for %s architecture", featureName, architecture),
		map[string]any{"featureName": featureName, "architecture": architecture},
		nil)
}

// Template reports a fragment that failed to parse or render
func Template(msg, templatePath string, cause error) *Error {
	return newError(CodeTemplate, msg, map[string]any{"templatePath": templatePath}, cause)
}

// FileSystem reports a missing source file or a failed copy/write
func FileSystem(msg, filePath string, cause error) *Error {
	return newError(CodeFileSystem, msg, map[string]any{"filePath": filePath}, cause)
}

// Dependency reports a registry or requirement resolution failure
func Dependency(msg, dependency string, cause error) *Error {
	return newError(CodeDependency, msg, map[string]any{"dependency": dependency}, cause)
}

// GenerationNotFound reports an unknown job id
func GenerationNotFound(id string) *Error {
	return newError(CodeGenerationNotFound, "generation not found",
		map[string]any{"generationId": id}, nil)
}

// ProjectNotReady reports a download attempt before the job completed
func ProjectNotReady(id, status string) *Error {
	return newError(CodeProjectNotReady,
		fmt.Sprintf("project not ready for download, status: %s", status),
		map[string]any{"generationId": id, "status": status}, nil)
}

// ProjectDataMissing reports a completed job without archive bytes
func ProjectDataMissing(id string) *Error {
	return newError(CodeProjectDataMissing, "project data missing",
		map[string]any{"generationId": id}, nil)
}

// Unknown wraps an untyped failure
func Unknown(cause error) *Error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: CodeUnknown, Message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Payload is the client-visible shape of a failure
type Payload struct {
	Message   string         `json:"message"`
	Code      Code           `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToPayload converts any error into a Payload. Untyped errors become CodeUnknown.
// Only the message is exposed; wrapped causes stay server-side.
func ToPayload(err error, now time.Time) Payload {
	var e *Error
	if !errors.As(err, &e) {
		e = Unknown(err)
	}
	return Payload{
		Message:   e.Error(),
		Code:      e.Code,
		Details:   e.Details,
		Timestamp: now.UTC(),
	}
}
