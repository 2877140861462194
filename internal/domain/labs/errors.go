package labs

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNone                  ErrorKind = ""
	ErrorKindConfiguration         ErrorKind = "configuration_error"
	ErrorKindBackendUnavailable    ErrorKind = "backend_unavailable"
	ErrorKindInvalidResponseFormat ErrorKind = "invalid_response_format"
	ErrorKindValidation            ErrorKind = "validation_error"
	ErrorKindFilesystem            ErrorKind = "filesystem_error"
)

// Recoverable reports whether a failure of this kind is handled per concept
// instead of aborting the run.
func (k ErrorKind) Recoverable() bool {
	return k != ErrorKindConfiguration && k != ErrorKindNone
}

// TriggersFallback reports whether a failure of this kind sends a concept to
// the template generator.
func (k ErrorKind) TriggersFallback() bool {
	switch k {
	case ErrorKindBackendUnavailable, ErrorKindInvalidResponseFormat, ErrorKindValidation:
		return true
	}
	return false
}

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrBackendUnavailable    = errors.New("backend unavailable")
	ErrInvalidResponseFormat = errors.New("invalid response format")
	ErrValidation            = errors.New("validation error")
	ErrFilesystem            = errors.New("filesystem error")
)

var sentinelByKind = map[ErrorKind]error{
	ErrorKindConfiguration:         ErrConfiguration,
	ErrorKindBackendUnavailable:    ErrBackendUnavailable,
	ErrorKindInvalidResponseFormat: ErrInvalidResponseFormat,
	ErrorKindValidation:            ErrValidation,
	ErrorKindFilesystem:            ErrFilesystem,
}

// Error is a classified pipeline failure. Op names the stage that failed.
type Error struct {
	Kind    ErrorKind
	Op      string
	Concept string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Concept != "" {
		msg += fmt.Sprintf(" (concept %q)", e.Concept)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, labs.ErrValidation) match on kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := sentinelByKind[e.Kind]
	return ok && s == target
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configurationf(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindConfiguration, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind carried by err, or ErrorKindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ErrorKindNone
}
