package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeStateConflict     = "STATE_CONFLICT"
	CodeCutoffExceeded    = "CUTOFF_EXCEEDED"
	CodeMalformedToken    = "MALFORMED_TOKEN"
	CodeTokenConsumed     = "TOKEN_ALREADY_CONSUMED"
	CodeTokenNotFound     = "TOKEN_NOT_FOUND"
	CodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	CodeRemoteRejected    = "REMOTE_REJECTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is the single error type crossing package boundaries. The Code
// tells the caller which rule was violated; Details carry the specifics.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// StateConflict reports a lifecycle transition that is not legal for the
// booking's current status, e.g. editing a completed booking.
func StateConflict(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeStateConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

// CutoffExceeded reports a cancel or edit attempted inside the pre-start
// cutoff window.
func CutoffExceeded(message string) *AppError {
	return &AppError{
		Code:       CodeCutoffExceeded,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func MalformedToken(message string) *AppError {
	return &AppError{
		Code:       CodeMalformedToken,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func TokenConsumed(bookingID string) *AppError {
	return &AppError{
		Code:       CodeTokenConsumed,
		Message:    "completion token has already been redeemed",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"booking_id": bookingID,
		},
	}
}

func TokenNotFound() *AppError {
	return &AppError{
		Code:       CodeTokenNotFound,
		Message:    "completion token does not match any booking",
		HTTPStatus: http.StatusNotFound,
	}
}

// RemoteUnavailable reports a transport-level failure talking to the
// booking service. Mutating operations other than Complete fall back to
// the offline cache on this code.
func RemoteUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeRemoteUnavailable,
		Message:    "booking service is unreachable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// RemoteRejected reports a business-level rejection by the booking
// service, e.g. the slot is no longer available. Never retried.
func RemoteRejected(message string) *AppError {
	return &AppError{
		Code:       CodeRemoteRejected,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
