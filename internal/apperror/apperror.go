// Package apperror defines the error kinds the lifecycle services raise and the
// stable machine-readable codes the HTTP boundary exposes for them.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindAlreadyExists
	KindExternal
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindAlreadyExists:
		return "already_exists"
	case KindExternal:
		return "external_service_failure"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Stable response codes
const (
	CodeCountryNotFound      = "COUNTRY_NOT_FOUND"
	CodeCountryDeleted       = "COUNTRY_DELETED"
	CodeCountryAlreadyExists = "COUNTRY_ALREADY_EXISTS"

	CodeTouristNotFound      = "TOURIST_NOT_FOUND"
	CodeTouristDeleted       = "TOURIST_DELETED"
	CodeTouristAlreadyExists = "TOURIST_ALREADY_EXISTS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"

	CodeVisitNotFound      = "VISIT_NOT_FOUND"
	CodeVisitDeleted       = "VISIT_DELETED"
	CodeVisitAlreadyExists = "VISIT_ALREADY_EXISTS"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeNeedSession  = "YOU_NEED_SESSION"
	CodeNoToken      = "NO_TOKEN"
	CodeErrorToken   = "ERROR_TOKEN"

	CodeRateLimited     = "RATE_LIMITED"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// Error is a classified failure. Message is safe to show to API callers;
// Err carries the underlying cause for server-side logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so sentinel-style
// comparisons like errors.Is(err, apperror.New(KindNotFound, CodeVisitNotFound, "")) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func AlreadyExists(code, message string) *Error {
	return New(KindAlreadyExists, code, message)
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func External(message string, err error) *Error {
	return Wrap(KindExternal, CodeExternalService, message, err)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal server error", err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
