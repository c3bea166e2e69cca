// Package apperrors provides the structured error taxonomy used across a run.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrCollection          = errors.New("collection error")
	ErrUnsupportedEncoding = errors.New("unsupported image encoding")
	ErrComposition         = errors.New("composition error")
	ErrSession             = errors.New("session error")
	ErrTargetNotFound      = errors.New("delivery target not found")
	ErrDeliveryAttempt     = errors.New("delivery attempt failed")
	ErrConflict            = errors.New("conflict")
	ErrUnavailable         = errors.New("unavailable")
	ErrValidation          = errors.New("validation error")
	ErrInternal            = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel   error  // Wrapped sentinel for errors.Is() classification
	Kind       error  // Optional narrower sentinel (e.g. ErrTargetNotFound under ErrSession)
	Message    string // Human-readable message
	Subject    string // Subject the error belongs to, if any
	File       string // Source file name, if any
	ArtifactID string // Artifact the error belongs to, if any
	Step       string // Delivery step that failed (e.g. "attach")
	Field      string // For validation errors
	Op         string // Operation that failed (e.g. "session.connect")
	Cause      error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the sentinels and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	for _, err := range []error{e.Sentinel, e.Kind, e.Cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Collection reports that a subject (or the source root, when subject is empty)
// could not be read.
func Collection(subject string, cause error) error {
	msg := fmt.Sprintf("collect subject %q: %v", subject, cause)
	if subject == "" {
		msg = fmt.Sprintf("collect subjects: %v", cause)
	}
	return &Error{
		Sentinel: ErrCollection,
		Message:  msg,
		Subject:  subject,
		Cause:    cause,
	}
}

// UnsupportedEncoding reports a source file whose extension maps to neither
// supported raster encoding.
func UnsupportedEncoding(subject, file string) error {
	return &Error{
		Sentinel: ErrUnsupportedEncoding,
		Message:  fmt.Sprintf("subject %q: %s has an unsupported image encoding", subject, file),
		Subject:  subject,
		File:     file,
	}
}

// Composition reports a supported file that could not be decoded or embedded.
func Composition(subject, file string, cause error) error {
	msg := fmt.Sprintf("compose subject %q: %v", subject, cause)
	if file != "" {
		msg = fmt.Sprintf("compose subject %q: %s: %v", subject, file, cause)
	}
	return &Error{
		Sentinel: ErrComposition,
		Message:  msg,
		Subject:  subject,
		File:     file,
		Cause:    cause,
	}
}

// Session reports a connection or target-resolution failure. It is fatal to
// the delivery phase of a run.
func Session(op string, cause error) error {
	return &Error{
		Sentinel: ErrSession,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// TargetNotFound reports that the destination never appeared on the surface.
func TargetNotFound(name string, cause error) error {
	return &Error{
		Sentinel: ErrSession,
		Kind:     ErrTargetNotFound,
		Message:  fmt.Sprintf("destination %q not found: %v", name, cause),
		Op:       "session.resolveTarget",
		Cause:    cause,
	}
}

// DeliveryAttempt reports a failed send of a single artifact.
func DeliveryAttempt(artifactID, step string, cause error) error {
	return &Error{
		Sentinel:   ErrDeliveryAttempt,
		Message:    fmt.Sprintf("deliver %s: %s: %v", artifactID, step, cause),
		ArtifactID: artifactID,
		Step:       step,
		Cause:      cause,
	}
}

// Conflict creates a conflict error for a resource.
func Conflict(resource, reason string) error {
	return &Error{
		Sentinel: ErrConflict,
		Message:  fmt.Sprintf("%s: %s", resource, reason),
	}
}

// Unavailable reports that a resource no longer accepts work.
func Unavailable(resource, reason string) error {
	return &Error{
		Sentinel: ErrUnavailable,
		Message:  fmt.Sprintf("%s: %s", resource, reason),
	}
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// ArtifactID returns the artifact an error belongs to, or "".
func ArtifactID(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.ArtifactID
	}
	return ""
}
