package errors

import (
	defErrors "errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is the error type every handler and service returns upward.
// The error-handler middleware translates it into the HTTP response.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, err error) *APIError {
	return &APIError{Status: status, Message: message, Internal: err}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(http.StatusUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, err)
}

func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// AlreadyProcessed marks a transition attempted on a row already in a
// terminal state. Surfaced as a conflict, original state is left untouched.
func AlreadyProcessed(message string) *APIError {
	return New(http.StatusConflict, message, nil)
}

// NewValidationError wraps a gin binding failure, flattening
// validator field errors into a readable message.
func NewValidationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if defErrors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" failed on '"+fe.Tag()+"'")
		}
		return UnprocessableEntity("Validation failed: "+strings.Join(fields, ", "), err)
	}
	return UnprocessableEntity("Validation failed", err)
}

// IsAPIError extracts an *APIError if err carries one
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if defErrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
