package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure. Every error that reaches an HTTP response or a
// worker log carries one.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Order engine taxonomy.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidSignature  Code = "INVALID_SIGNATURE"
	CodePaymentGateway    Code = "PAYMENT_GATEWAY_ERROR"
	CodePersistence       Code = "PERSISTENCE_ERROR"
)

// Metadata is how a code surfaces at the HTTP edge. Retryable tells callers
// (and the outbox publisher) whether repeating the same request can succeed.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	permanent = false
	transient = true

	withDetails = true
	noDetails   = false
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, permanent, "validation failed", withDetails},
	CodeUnauthorized:      {http.StatusUnauthorized, permanent, "authentication required", noDetails},
	CodeForbidden:         {http.StatusForbidden, permanent, "access denied", noDetails},
	CodeNotFound:          {http.StatusNotFound, permanent, "resource not found", noDetails},
	CodeConflict:          {http.StatusConflict, permanent, "conflict detected", noDetails},
	CodeStateConflict:     {http.StatusConflict, permanent, "state transition disallowed", withDetails},
	CodeIdempotency:       {http.StatusConflict, permanent, "idempotency key reused", withDetails},
	CodeInsufficientStock: {http.StatusConflict, permanent, "insufficient stock", withDetails},
	// Signature failures never explain themselves.
	CodeInvalidSignature: {http.StatusUnauthorized, permanent, "request could not be verified", noDetails},
	CodePaymentGateway:   {http.StatusBadGateway, transient, "payment provider unavailable", noDetails},
	CodePersistence:      {http.StatusServiceUnavailable, transient, "temporarily unable to save changes", noDetails},
	CodeInternal:         {http.StatusInternalServerError, transient, "internal server error", noDetails},
	CodeDependency:       {http.StatusServiceUnavailable, transient, "dependency unavailable", withDetails},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Error includes the cause so log lines carry the full chain; clients only
// ever see Message.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Retryable reports whether the caller may safely retry the failed operation.
func Retryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.Code()).Retryable
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
