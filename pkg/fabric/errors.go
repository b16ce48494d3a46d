package fabric

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Sentinel errors returned by the client. Match them with errors.Is.
var (
	// ErrNotFound means a name or identifier resolved to no resource.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousName means a display name matched more than one resource
	// under a DuplicateError policy.
	ErrAmbiguousName = errors.New("ambiguous name")

	// ErrInvalidArgument means a required parameter was missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCreationFailed means the platform accepted a create request but the
	// returned object does not echo the requested display name.
	ErrCreationFailed = errors.New("creation failed")

	// ErrTimedOut means a long-running operation did not finish before its deadline.
	ErrTimedOut = errors.New("operation timed out")

	// ErrOperationFailed means a long-running operation ended as failed or canceled.
	ErrOperationFailed = errors.New("operation failed")

	// ErrFormat means a response did not have the shape the API contract promises.
	ErrFormat = errors.New("unexpected response format")
)

// errUnexpectedAccepted is the cause of a 202 answer to a request that
// cannot start a long-running operation.
var errUnexpectedAccepted = errors.New("unexpected 202 Accepted")

// maxErrorBody caps how much of a response body is kept on errors.
const maxErrorBody = 512

// TransportError is returned when an HTTP call fails, either on the network
// (StatusCode is 0) or with a non-success status.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a TransportError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == status
}

// isNotFoundStatus reports whether err is an HTTP 404 from the platform.
func isNotFoundStatus(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// FormatError reports a response that violates the API contract.
type FormatError struct {
	Endpoint string
	Reason   string
	Body     string
}

func (e *FormatError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s: %s", ErrFormat, e.Endpoint, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s: %s", ErrFormat, e.Endpoint, e.Reason, e.Body)
}

// Is makes errors.Is(err, ErrFormat) match.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// OperationError carries the terminal state and last payload of a failed
// or timed out long-running operation.
type OperationError struct {
	Location string
	State    OperationState
	Payload  []byte
}

func (e *OperationError) Error() string {
	if e.State == StateTimedOut {
		return fmt.Sprintf("%s: %s", ErrTimedOut, e.Location)
	}
	if msg := operationErrorMessage(e.Payload); msg != "" {
		return fmt.Sprintf("%s: %s", ErrOperationFailed, msg)
	}
	return fmt.Sprintf("%s: %s", ErrOperationFailed, e.Location)
}

// Is makes errors.Is match ErrTimedOut or ErrOperationFailed by state.
func (e *OperationError) Is(target error) bool {
	switch e.State {
	case StateTimedOut:
		return target == ErrTimedOut
	case StateFailed:
		return target == ErrOperationFailed
	default:
		return false
	}
}

// truncate shortens s to at most n bytes without splitting a UTF-8
// sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
