package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes returned in the "code" field of every error body.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeDeliveryFault    = "DELIVERY_FAULT"
)

// statusByCode is used when an AppError is built without an explicit status.
var statusByCode = map[string]int{
	CodeNotFound:         http.StatusNotFound,
	CodeValidation:       http.StatusUnprocessableEntity,
	CodeConflict:         http.StatusConflict,
	CodeInternal:         http.StatusInternalServerError,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeUnavailable:      http.StatusServiceUnavailable,
	CodeInvalidInput:     http.StatusBadRequest,
	CodeInvalidRequest:   http.StatusBadRequest,
	CodeCapacityExceeded: http.StatusConflict,
	CodeDeliveryFault:    http.StatusServiceUnavailable,
}

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// StatusCode falls back to the code's default status, then to 500.
func (e *AppError) StatusCode() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Response is the body written to clients. The cause is never exposed.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func withCode(code, message string, err error) *AppError {
	return Wrap(err, code, message, statusByCode[code])
}

func NotFoundWithID(resource, id string) *AppError {
	return withCode(CodeNotFound, resource+" not found", nil).
		WithDetails(map[string]any{"resource": resource, "id": id})
}

func InvalidInput(message string) *AppError {
	return withCode(CodeInvalidInput, message, nil)
}

// InvalidRequest reports a malformed reservation request. No facility was
// touched when this is returned.
func InvalidRequest(message string, details map[string]any) *AppError {
	return withCode(CodeInvalidRequest, message, nil).WithDetails(details)
}

// CapacityExceeded reports that facility could not admit the request and the
// whole transaction was rolled back.
func CapacityExceeded(facility string) *AppError {
	return withCode(CodeCapacityExceeded, "capacity exceeded on facility "+facility, nil).
		WithDetails(map[string]any{"facility": facility})
}

// DeliveryFault is raised by the notification layer only. It never maps to a
// reservation outcome.
func DeliveryFault(message string, err error) *AppError {
	return withCode(CodeDeliveryFault, message, err)
}

func Internal(message string, err error) *AppError {
	return withCode(CodeInternal, message, err)
}

func Unavailable(component string) *AppError {
	return withCode(CodeUnavailable, component+" is temporarily unavailable", nil)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// AsAppError unwraps err to its AppError, or reports it as an internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
