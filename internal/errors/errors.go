// Package errors provides custom error types and error handling utilities.
// Following Go idioms, errors are values that carry context about what went wrong.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the application.
// These can be checked with errors.Is() for specific error handling.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a duplicate resource.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidURL indicates an invalid or malformed URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedPlatform indicates the URL's platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrDependencyMissing indicates a required binary is not installed.
	ErrDependencyMissing = errors.New("required dependency not installed")

	// ErrDownloadFailed indicates a download operation failed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrConversionFailed indicates a media conversion failed.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled by user.
	ErrCancelled = errors.New("operation cancelled")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthRequired indicates authentication is required.
	ErrAuthRequired = errors.New("authentication required")
)

// ErrorKind is the closed classification a Downloader attaches to every
// failing Result. The Retry Policy consumes only the kind, never the
// wrapped error text, so new failure text never silently changes retry
// behavior.
type ErrorKind string

const (
	// KindNetwork covers connection resets, DNS failures, and other
	// transport-level faults. Retryable.
	KindNetwork ErrorKind = "network"

	// KindFilesystem covers disk-full, permission, and path errors writing
	// the output file. Retryable (the condition may clear).
	KindFilesystem ErrorKind = "filesystem"

	// KindYouTube covers the remote service rejecting or malforming the
	// request (private video, region block, parsing failure). Not
	// retryable: resubmitting the same video_id will not change the
	// outcome.
	KindYouTube ErrorKind = "youtube"

	// KindAuthentication covers login-required content and credential or
	// session failures. Not retryable without an operator supplying
	// credentials out of band.
	KindAuthentication ErrorKind = "authentication"

	// KindInvalidInput covers a video_id or TaskConfig field that failed
	// validation before ever reaching a Downloader. Not retryable.
	KindInvalidInput ErrorKind = "invalid_input"

	// KindCancelled covers a Fetch that returned because its cancel token
	// fired. Not retryable; this is not a failure of the download itself.
	KindCancelled ErrorKind = "cancelled"

	// KindUnknown is the fallback for an error a Downloader could not
	// classify. Retryable() reports false for it, since it is not a confirmed
	// transient condition, but the Retry Policy in internal/retry still
	// grants it another attempt.
	KindUnknown ErrorKind = "unknown"
)

// Retryable reports whether this kind is a known transient condition.
// KindNetwork and KindFilesystem are the only such kinds. The Retry Policy
// retries these and, in addition, KindUnknown; every other kind is a
// terminal classification of the failure.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindFilesystem:
		return true
	default:
		return false
	}
}

// Valid reports whether k is one of the closed set of defined kinds.
func (k ErrorKind) Valid() bool {
	switch k {
	case KindNetwork, KindFilesystem, KindYouTube, KindAuthentication,
		KindInvalidInput, KindCancelled, KindUnknown:
		return true
	default:
		return false
	}
}

// AppError is a structured error type that carries additional context.
type AppError struct {
	Op      string    // Operation that failed (e.g., "VideoHandler.GetVideoInfo")
	Err     error     // Underlying error
	Message string    // User-friendly message
	Code    string    // Error code for frontend handling
	Kind    ErrorKind // Classification consumed by the Retry Policy; zero value means unset
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is and errors.As to work with wrapped errors.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given operation and error.
func New(op string, err error) *AppError {
	return &AppError{
		Op:  op,
		Err: err,
	}
}

// NewWithMessage creates a new AppError with a user-friendly message.
func NewWithMessage(op string, err error, message string) *AppError {
	return &AppError{
		Op:      op,
		Err:     err,
		Message: message,
	}
}

// NewWithCode creates a new AppError with an error code for frontend handling.
func NewWithCode(op string, err error, code string, message string) *AppError {
	return &AppError{
		Op:      op,
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with operation context.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err}
}

// WrapWithMessage wraps an error with a user-friendly message.
func WrapWithMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err, Message: message}
}

// NewWithKind creates a new AppError tagged with the ErrorKind a Downloader
// or the retry policy needs to decide whether an attempt is retryable.
func NewWithKind(op string, err error, kind ErrorKind) *AppError {
	return &AppError{Op: op, Err: err, Kind: kind}
}

// Kind extracts the ErrorKind from err if it is, or wraps, an *AppError with
// a Kind set. Returns KindUnknown for any error that carries no classification,
// so callers never need a second nil-check before consulting Retryable().
func Kind(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind.Valid() && ae.Kind != "" {
		return ae.Kind
	}
	return KindUnknown
}

// IsNotFound checks if an error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled checks if an error is a cancellation error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsAuthRequired checks if an error requires authentication.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
