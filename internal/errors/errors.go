package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Snag error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrDuplicateCapture ErrorCode = "DUPLICATE_CAPTURE" // 409
	ErrBodyTooLarge     ErrorCode = "BODY_TOO_LARGE"    // 413
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// SnagError represents a structured error with code, status, and details.
type SnagError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SnagError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SnagError {
	return &SnagError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a report cannot be found.
func NewNotFound(id string) *SnagError {
	return &SnagError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("report not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for import/export paths that do not exist.
func NewFileNotFound(path string) *SnagError {
	return &SnagError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateCapture creates a 409 error when a capture with the same context hash
// was already stored.
func NewDuplicateCapture(hash string, existingIDs []string) *SnagError {
	return &SnagError{
		Code:    ErrDuplicateCapture,
		Status:  409,
		Message: fmt.Sprintf("capture %s already reported", hash),
		Details: map[string]any{"context_hash": hash, "existing_ids": existingIDs},
	}
}

// NewBodyTooLarge creates a 413 error when an assembled body exceeds what the tracker
// accepts.
func NewBodyTooLarge(max, actual int) *SnagError {
	return &SnagError{
		Code:    ErrBodyTooLarge,
		Status:  413,
		Message: fmt.Sprintf("report body exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewCancelled creates a 499 error when the caller's context ends mid-operation.
func NewCancelled(operation string) *SnagError {
	return &SnagError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the cause is kept in Details for logging only.
func NewInternal(err error) *SnagError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &SnagError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if err is, or wraps, a SnagError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SnagError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
