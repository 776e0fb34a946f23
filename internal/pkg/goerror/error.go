// Package goerror carries the error model shared by usecases and the HTTP
// layer: a user facing message, a type, a code that maps to a status, and
// optional fields rendered in the error envelope.
package goerror

import (
	"errors"
	"log/slog"
	"net/http"
)

var (
	// ErrNotFound is returned by repositories for a missing row.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned by repositories for a unique violation.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "validation"
	case TypeBusiness:
		return "business"
	case TypeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Code is a stable identifier mapped to an HTTP status.
type Code int

const (
	CodeInternal Code = iota
	// CodeInvalidFormat is a body or query that cannot be decoded.
	CodeInvalidFormat
	// CodeInvalidInput is a decoded request that fails validation.
	CodeInvalidInput
	CodeNotFound
	// CodeConflict covers re-registration of a verified contact.
	CodeConflict
	// CodeTooManyRequest covers every OTP issue and verify ceiling.
	CodeTooManyRequest
	// CodeBadRequest is a well formed request the current state cannot serve:
	// wrong, expired or exhausted codes.
	CodeBadRequest
)

var codeMeta = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:       {"internal", http.StatusInternalServerError},
	CodeInvalidFormat:  {"invalid_format", http.StatusBadRequest},
	CodeInvalidInput:   {"invalid_input", http.StatusBadRequest},
	CodeNotFound:       {"not_found", http.StatusNotFound},
	CodeConflict:       {"conflict", http.StatusConflict},
	CodeTooManyRequest: {"too_many_requests", http.StatusTooManyRequests},
	CodeBadRequest:     {"bad_request", http.StatusBadRequest},
}

func (c Code) String() string {
	if m, ok := codeMeta[c]; ok {
		return m.name
	}
	return codeMeta[CodeInternal].name
}

// Error is the structured error returned by usecases. It may wrap a cause
// that is logged but never shown to callers.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error prefers the wrapped cause so logs show what actually failed.
func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	default:
		return e.errType.String() + " error"
	}
}

// LogValue lets slog print the error as a group instead of a bare string.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.errType.String()),
		slog.String("code", e.code.String()),
		slog.String("msg", e.msg),
	}
	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// Msg returns the user facing message.
func (e *Error) Msg() string { return e.msg }

func (e *Error) Type() Type { return e.errType }

func (e *Error) Code() Code { return e.code }

// Fields are per-field messages for validation errors and machine readable
// details, e.g. remaining_attempts, for business errors.
func (e *Error) Fields() map[string]string { return e.fields }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) StatusCode() int {
	if m, ok := codeMeta[e.code]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// pairs turns k1, v1, k2, v2 into a map; an odd trailing key is dropped.
func pairs(kv []string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

// NewBusiness reports a rule the request broke, with optional kv fields.
func NewBusiness(msg string, code Code, kv ...string) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code, fields: pairs(kv)}
}

// Is reports whether err is a goerror with the given code.
func Is(err error, code Code) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.code == code
}

// NewInvalidInput wraps a validator error, or builds one from kv field
// messages when err is nil. An odd kv list is a programming error and reads
// as an invalid body.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := pairs(kv)
	if fields == nil {
		fields = map[string]string{}
	}
	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat uses msgs[0] as the message when given.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return &Error{msg: msg, errType: TypeValidation, code: CodeInvalidFormat}
}
