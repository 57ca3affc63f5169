package core

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrUserNotFound  = errors.New("user not found")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports an upstream lookup that yielded nothing.
type NotFoundError struct {
	Err error
}

func NewNotFoundError(err error) error {
	return &NotFoundError{err}
}

func (err NotFoundError) Error() string {
	if err.Err == nil {
		return "not found"
	}
	return err.Err.Error()
}

// UpstreamError is a failed Moodle call.
// Logical errors are the ones Moodle reports with an `exception` body (usually at HTTP 200).
// Anything else is a transport error: a non-2xx status, an unreachable endpoint or a body that is not JSON.
type UpstreamError struct {
	Function  string
	Message   string
	ErrorCode string
	Status    int // 0 when no response was received
	Logical   bool
	Details   json.RawMessage
	Err       error
}

func (err UpstreamError) Error() string {
	msg := err.Message
	if msg == "" && err.Err != nil {
		msg = err.Err.Error()
	}
	return err.Function + ": " + msg
}

// Unwrap exposes the transport failure, if any. errors.Cause deliberately stops at UpstreamError.
func (err UpstreamError) Unwrap() error { return err.Err }

// HTTPStatus is the status the gateway answers with for this error.
func (err UpstreamError) HTTPStatus() int {
	switch {
	case err.Logical:
		return http.StatusBadRequest
	case err.Status >= http.StatusBadRequest:
		return err.Status
	default:
		return http.StatusInternalServerError
	}
}

// UnexpectedShapeError reports a Moodle success payload that does not have the expected structure.
type UnexpectedShapeError struct {
	Function string
	Details  json.RawMessage
}

func NewUnexpectedShapeError(function string, details json.RawMessage) error {
	return &UnexpectedShapeError{Function: function, Details: details}
}

func (err UnexpectedShapeError) Error() string {
	return "unexpected Moodle response"
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
