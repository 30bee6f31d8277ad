package fetch

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrUnsupportedProtocol is matched by *ProtocolError.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrRetriesExhausted is matched by *RetriesExhaustedError.
	ErrRetriesExhausted = errors.New("maximum number of retries reached")

	// ErrBodyTooLarge is returned when a response body exceeds the configured size cap.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrDecode is returned when a compressed body cannot be decoded.
	ErrDecode = errors.New("failed to decode response body")
)

// ProtocolError reports a URL whose scheme cannot be fetched.
type ProtocolError struct {
	URL    string
	Scheme string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unsupported protocol %q: %s", e.Scheme, e.URL)
}

// Is reports whether target is ErrUnsupportedProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrUnsupportedProtocol
}

// NetworkError wraps a transport level failure of a single attempt.
type NetworkError struct {
	URL    string
	Method string
	Err    error
}

// Error implements error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RetriesExhaustedError is returned by RetryingFetcher after the last attempt failed.
type RetriesExhaustedError struct {
	URL      string
	Method   string
	Attempts int
	Last     error
}

// Error implements error.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s %s after %d attempts: %v", ErrRetriesExhausted, e.Method, e.URL, e.Attempts, e.Last)
}

// Is reports whether target is ErrRetriesExhausted.
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Unwrap returns the error of the last attempt.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}
