// Package errors defines the error taxonomy shared across the service
// and helpers for rendering errors as HTTP responses.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes carried by AppError. The code decides the HTTP status and
// the metrics label, so handlers never hardcode either.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeAlreadyExists  = "ALREADY_EXISTS"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInvalidRequest = "INVALID_REQUEST"

	CodeInternal      = "INTERNAL_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	CodeTimeout       = "TIMEOUT"
	CodeAnalysisError = "ANALYSIS_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
)

// codeStatus pairs each client-facing code with its HTTP status. The
// first entry for a status wins when translating a bare status back
// into a code, which is why CodeInvalidRequest precedes CodeValidation.
var codeStatus = []struct {
	code   string
	status int
}{
	{CodeInvalidRequest, http.StatusBadRequest},
	{CodeValidation, http.StatusBadRequest},
	{CodeUnauthorized, http.StatusUnauthorized},
	{CodeForbidden, http.StatusForbidden},
	{CodeNotFound, http.StatusNotFound},
	{CodeAlreadyExists, http.StatusConflict},
	{CodeRateLimited, http.StatusTooManyRequests},
	{CodeUnavailable, http.StatusServiceUnavailable},
	{CodeTimeout, http.StatusGatewayTimeout},
}

// AppError is an error with a code from the taxonomy above, an
// operator-facing message, and optional structured details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to a status. Codes without a table
// entry, including the analysis and storage codes, are server errors.
func (e *AppError) HTTPStatus() int {
	for _, cs := range codeStatus {
		if cs.code == e.Code {
			return cs.status
		}
	}
	return http.StatusInternalServerError
}

// WithDetail attaches one key-value detail, allocating the map on first
// use.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with no cause.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around a cause.
func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ValidationError reports input that failed validation.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError reports a missing resource by name.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, resource+" not found")
}

// InvalidRequestError reports a request the server could not parse.
func InvalidRequestError(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

// UnauthorizedError reports a missing or rejected credential.
func UnauthorizedError() *AppError {
	return New(CodeUnauthorized, "unauthorized")
}

// RateLimitedError reports a throttled request. A positive
// retryAfterSeconds is surfaced in the details.
func RateLimitedError(retryAfterSeconds int) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded")
	if retryAfterSeconds > 0 {
		err = err.WithDetail("retry_after", fmt.Sprintf("%d", retryAfterSeconds))
	}
	return err
}

// InternalError wraps an unexpected failure.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// AnalysisError wraps a failure from the AI labeling pipeline.
func AnalysisError(message string, err error) *AppError {
	return Wrap(CodeAnalysisError, message, err)
}

// StorageError wraps a failure from the photo store.
func StorageError(message string, err error) *AppError {
	return Wrap(CodeStorageError, message, err)
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether err carries a not-found code anywhere in
// its chain.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err carries a validation code anywhere
// in its chain.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// ErrorResponse is the JSON body of every error the API returns.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteError renders err as JSON. An AppError keeps its code and
// status; any other error becomes a generic internal error so
// infrastructure details stay out of responses.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		writeResponse(w, appErr.HTTPStatus(), responseFor(appErr))
		return
	}
	writeMasked(w, http.StatusInternalServerError)
}

// WriteErrorWithStatus renders err under a caller-chosen status. Plain
// errors keep their message only for client statuses; server statuses
// get the same masking as WriteError.
func WriteErrorWithStatus(w http.ResponseWriter, status int, err error) {
	var appErr *AppError
	switch {
	case stderrors.As(err, &appErr):
		writeResponse(w, status, responseFor(appErr))
	case status >= 400 && status < 500:
		writeResponse(w, status, ErrorResponse{
			Error:   err.Error(),
			Code:    codeForStatus(status),
			Message: err.Error(),
		})
	default:
		writeMasked(w, status)
	}
}

func responseFor(appErr *AppError) ErrorResponse {
	return ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
}

func writeMasked(w http.ResponseWriter, status int) {
	writeResponse(w, status, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}

func writeResponse(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors cannot be reported once the header is out.
	_ = json.NewEncoder(w).Encode(resp)
}

func codeForStatus(status int) string {
	for _, cs := range codeStatus {
		if cs.status == status {
			return cs.code
		}
	}
	return CodeInternal
}
