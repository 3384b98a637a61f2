// Package apperror defines the application's error taxonomy.
//
// Each failure mode has a sentinel error that handlers match with errors.Is
// to pick an HTTP status, plus an AppError wrapper carrying the user-facing
// message. Services return AppError values (usually wrapped further with
// fmt.Errorf + %w); the handler layer owns the mapping to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — missing or malformed input. Maps to 400.
	ErrValidation = errors.New("validation error")
	// ErrDuplicate — email or phone collides with an existing account.
	// Surfaced with a generic message, maps to 400.
	ErrDuplicate = errors.New("duplicate")
	// ErrAuth — bad credentials. Deliberately indistinguishable from
	// "user not found". Maps to 400.
	ErrAuth = errors.New("authentication failed")
	// ErrUnsupportedMedia — uploaded file type outside the allow-list. Maps to 400.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrUpload — the external media host failed or returned nothing usable. Maps to 500.
	ErrUpload = errors.New("upload failed")
	// ErrNotFound — no record for the given identifier. Maps to 404.
	ErrNotFound = errors.New("not found")
)

// AppError pairs a sentinel with a message safe to show to the caller.
type AppError struct {
	Err     error  // sentinel, matched via errors.Is
	Message string // human-readable, user-facing
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ValidationFailed reports missing or malformed input on the given field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports an email/phone collision. The message stays generic so
// the response doesn't confirm which field collided.
func Duplicate(message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
	}
}

// InvalidCredentials returns the uniform login failure. The same value is
// used whether the email is unknown or the password doesn't match, so the
// response text cannot be used to enumerate accounts.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: "Invalid Email Or Password.",
	}
}

// UnsupportedMedia reports an upload whose detected type is not allowed.
func UnsupportedMedia(detected string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedMedia,
		Message: fmt.Sprintf("Invalid file type %s. Please upload a PNG, JPEG or WebP image.", detected),
	}
}

// UploadFailed reports a failure from the external media host.
func UploadFailed() *AppError {
	return &AppError{
		Err:     ErrUpload,
		Message: "Failed to upload picture.",
	}
}

// NotFound reports a missing record.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}
