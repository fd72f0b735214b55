package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// AppError represents a tagged application error.
type AppError struct {
	Code    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes carried by AppError; handlers map them to HTTP statuses.
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeFieldValidation     = "FIELD_VALIDATION"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodePermanentlyRejected = "PERMANENTLY_REJECTED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewFieldValidationError wraps a map of field path to messages collected
// during submission validation.
func NewFieldValidationError(fields map[string][]string) *AppError {
	return &AppError{
		Code:    ErrCodeFieldValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

// NewPermanentlyRejectedError signals that a listing slot is closed for good:
// either an edit of a permanently rejected tool or a resubmission under the
// same name.
func NewPermanentlyRejectedError(slug string) *AppError {
	return &AppError{
		Code:    ErrCodePermanentlyRejected,
		Message: fmt.Sprintf("A listing named %q was permanently rejected and cannot be resubmitted", slug),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusForError maps an error to the HTTP status its code calls for.
// Unknown and internal errors map to 500.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case ErrCodeValidation:
		return fiber.StatusBadRequest
	case ErrCodeFieldValidation:
		return fiber.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return fiber.StatusNotFound
	case ErrCodeUnauthorized:
		return fiber.StatusUnauthorized
	case ErrCodeForbidden:
		return fiber.StatusForbidden
	case ErrCodePermanentlyRejected:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes a standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:  appErr.Message,
			Code:   appErr.Code,
			Fields: appErr.Fields,
		}
		// Internal causes are logged server-side, never surfaced to clients.
		if appErr.Err != nil && appErr.Code != ErrCodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
