package errors

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Error kinds. Every *Error carries exactly one of these so callers can branch
// with errors.Is regardless of how deeply the error was wrapped.
var (
	ErrNotFound            = stderrors.New("not found")
	ErrValidation          = stderrors.New("validation failed")
	ErrIntegrityConstraint = stderrors.New("integrity constraint violated")
	ErrAuthentication      = stderrors.New("authentication failed")
	ErrAuthorization       = stderrors.New("not authorized")
	ErrStorage             = stderrors.New("storage failure")
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"

	// Authorization errors
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrCodeNotProjectMember        = "NOT_PROJECT_MEMBER"

	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Business logic errors
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Storage errors
	ErrCodeStorageFailure = "STORAGE_FAILURE"
)

// Error is the structured error returned by the core.
type Error struct {
	Kind    error  `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// New creates an Error of the given kind.
func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind error, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Validation reports malformed input caught before reaching storage.
func Validation(code, message string) *Error {
	return New(ErrValidation, code, message)
}

// NotFound reports a lookup miss on an operation that cannot express it as "no effect".
func NotFound(message string) *Error {
	return New(ErrNotFound, ErrCodeNotFound, message)
}

// Integrity reports a uniqueness or foreign-key violation raised by the storage engine.
func Integrity(message string, cause error) *Error {
	return Wrap(ErrIntegrityConstraint, ErrCodeConflict, message, cause)
}

// Authentication reports bad credentials or an unusable token.
func Authentication(code, message string) *Error {
	return New(ErrAuthentication, code, message)
}

// Authorization reports insufficient role or membership.
func Authorization(code, message string) *Error {
	return New(ErrAuthorization, code, message)
}

// Storage reports an I/O or connection failure.
func Storage(message string, cause error) *Error {
	return Wrap(ErrStorage, ErrCodeStorageFailure, message, cause)
}

// HTTPStatus maps an error kind to the status code the HTTP collaborator should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrIntegrityConstraint):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body and aborts the gin chain.
// Storage and unknown errors are reported without their cause.
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)

	var appErr *Error
	if !stderrors.As(err, &appErr) || status == http.StatusInternalServerError {
		appErr = New(ErrStorage, ErrCodeStorageFailure, "Internal server error")
	}

	c.AbortWithStatusJSON(status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
