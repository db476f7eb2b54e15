package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError and returned to API callers.
const (
	CodeInvalidInput            = "INVALID_INPUT"
	CodeNoTextExtracted         = "NO_TEXT_EXTRACTED"
	CodeUnsupportedJurisdiction = "UNSUPPORTED_JURISDICTION"
	CodeNotFound                = "NOT_FOUND"
	CodeConfig                  = "CONFIG_ERROR"
	CodeCancelled               = "CANCELLED"
	CodeInternal                = "INTERNAL"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound                = errors.New("resource not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInternal                = errors.New("internal error")
	ErrDatabase                = errors.New("database error")
	ErrValidation              = errors.New("validation failed")
	ErrNoTextExtracted         = errors.New("no text extracted")
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")
	ErrCancelled               = errors.New("analysis cancelled")
	ErrInvalidTransition       = errors.New("invalid status transition")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InvalidInput builds a user-facing rejection of a request.
func InvalidInput(format string, args ...any) *AppError {
	return NewAppError(CodeInvalidInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode returns the AppError code found in err's chain, falling back to
// a code derived from well-known sentinels.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNoTextExtracted):
		return CodeNoTextExtracted
	case errors.Is(err, ErrUnsupportedJurisdiction):
		return CodeUnsupportedJurisdiction
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return CodeCancelled
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code the HTTP boundary returns.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case "":
		return http.StatusOK
	case CodeInvalidInput, CodeUnsupportedJurisdiction:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNoTextExtracted:
		return http.StatusUnprocessableEntity
	case CodeCancelled:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// GRPCCode maps an error to a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch ErrorCode(err) {
	case "":
		return codes.OK
	case CodeInvalidInput, CodeUnsupportedJurisdiction:
		return codes.InvalidArgument
	case CodeNotFound:
		return codes.NotFound
	case CodeNoTextExtracted:
		return codes.FailedPrecondition
	case CodeCancelled:
		return codes.Canceled
	}
	return codes.Internal
}

// ToStatus converts err into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(GRPCCode(err), err.Error())
}
