// Package facial coordinates enrollment, recognition and verification of facial templates.
//
// Failures are returned as wrapped sentinel errors and classified at the
// request boundary with errors.Is:
//
//	switch {
//	case errors.Is(err, facial.ErrBadInput):
//	    // 400, message from *ValidationError
//	case errors.Is(err, facial.ErrUserNotFound):
//	    // 404
//	case errors.Is(err, facial.ErrStorage):
//	    // 500
//	}
//
// The package does not log.
package facial

import "errors"

// Sentinel errors for facial operations.
var (
	// ErrBadInput indicates a missing image or a blank username.
	// HTTP Status: 400 Bad Request
	ErrBadInput = errors.New("bad input")

	// ErrNoFace indicates the strategy could not extract an embedding.
	// HTTP Status: 400 Bad Request
	ErrNoFace = errors.New("no face detected")

	// ErrUserNotFound indicates verification against an unknown username.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrTemplateNotFound indicates verification against a user without a template.
	// HTTP Status: 404 Not Found
	ErrTemplateNotFound = errors.New("template not found")

	// ErrStorage indicates the template store failed.
	// HTTP Status: 500 Internal Server Error
	ErrStorage = errors.New("template storage failed")
)

// Fields reported by ValidationError.
const (
	FieldImage    = "file"
	FieldUsername = "username"
)

// ValidationError describes which input was rejected and the message shown to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap makes errors.Is(err, ErrBadInput) hold for every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrBadInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
