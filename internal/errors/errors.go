// Package apperrors defines structured application error types,
// allowing for a clear distinction between error classes (configuration,
// computation, cluster transport) and for carrying the underlying cause.
//
// Error Wrapping Guidelines:
// This package follows Go's error wrapping conventions using fmt.Errorf with %w.
// All error types implement the Unwrap() method to support errors.Is() and errors.As().
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorTimeout  = 2   // Indicates the operation timed out.
	ExitErrorMismatch = 3   // Indicates a digit mismatch between algorithms.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// Sentinel causes for the fatal validation failures. Every process of a
// run validates the same inputs, so whichever rank hits one of these knows
// the others are failing identically and can exit without coordination.
var (
	// ErrInvalidPrecision marks a requested precision below one digit.
	ErrInvalidPrecision = errors.New("invalid precision")

	// ErrInfeasiblePartition marks a topology with more workers than
	// series iterations, which would leave workers without indices.
	ErrInfeasiblePartition = errors.New("infeasible partition")

	// ErrInvalidAlgorithm marks an algorithm selector outside the
	// supported set.
	ErrInvalidAlgorithm = errors.New("invalid algorithm selector")
)

// ConfigError represents a user configuration error, such as invalid flags
// or values. It indicates that the application cannot proceed due to
// incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
	// Cause optionally carries a sentinel so callers can test which
	// validation failed.
	Cause error
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// Unwrap returns the sentinel cause, if any.
func (e ConfigError) Unwrap() error { return e.Cause }

// NewConfigError creates a new ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// NewInvalidPrecision creates the ConfigError for a non-positive precision.
func NewInvalidPrecision(precision int) error {
	return ConfigError{
		Message: fmt.Sprintf("precision must be greater than zero, got %d", precision),
		Cause:   ErrInvalidPrecision,
	}
}

// NewInfeasiblePartition creates the ConfigError for a run whose iteration
// count cannot give every worker at least one index.
func NewInfeasiblePartition(iterations, procs, threads int) error {
	return ConfigError{
		Message: fmt.Sprintf(
			"%d iterations are too few for %d processes with %d threads each; raise the precision or lower the worker counts",
			iterations, procs, threads),
		Cause: ErrInfeasiblePartition,
	}
}

// NewInvalidAlgorithm wraps an algorithm lookup failure as a ConfigError.
func NewInvalidAlgorithm(cause error) error {
	return ConfigError{Message: cause.Error(), Cause: ErrInvalidAlgorithm}
}

// ComputationError encapsulates a computation error while preserving the
// original cause. This allows for structured error handling and inspection
// of what went wrong during the series summation.
type ComputationError struct {
	// Cause is the underlying error that triggered this computation error.
	Cause error
}

// Error returns the error message from the underlying cause.
func (e ComputationError) Error() string { return e.Cause.Error() }

// Unwrap returns the original wrapped error, allowing for error chain
// inspection (e.g., using errors.Is or errors.As).
func (e ComputationError) Unwrap() error { return e.Cause }

// MismatchError reports that the algorithms of a comparison run disagreed
// on the computed digits. Disagreement means at least one implementation
// is wrong, so it gets a dedicated exit code.
type MismatchError struct {
	// Details names the disagreeing algorithms and their digit counts.
	Details string
}

// Error returns the error message for a MismatchError.
func (e MismatchError) Error() string { return e.Details }

// ClusterError represents errors in the cross-process reduction layer:
// connection failures, marshaling problems, or a broker that went away
// mid-collective.
type ClusterError struct {
	// Message describes the cluster operation that failed.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the error message for a ClusterError.
func (e ClusterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e ClusterError) Unwrap() error { return e.Cause }

// NewClusterError creates a new ClusterError with a message and optional cause.
func NewClusterError(message string, cause error) error {
	return ClusterError{Message: message, Cause: cause}
}

// ServerError represents errors that occur in the HTTP server component.
// It wraps an underlying error with additional context specific to the
// server operation.
type ServerError struct {
	// Message is a descriptive message about the server error.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the error message for a ServerError.
func (e ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a new ServerError with a message and optional cause.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline
// exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCodeFor maps an error to the process exit code contract: nil is
// success, configuration problems and mismatches have dedicated codes,
// context ends map to timeout or cancellation, and anything else is the
// generic failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cfg ConfigError
	if errors.As(err, &cfg) {
		return ExitErrorConfig
	}
	var mismatch MismatchError
	if errors.As(err, &mismatch) {
		return ExitErrorMismatch
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ExitErrorCanceled
	}
	return ExitErrorGeneric
}
