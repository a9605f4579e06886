// Package domain contains the core entities and interfaces for the frontend.
package domain

import "errors"

// Domain errors represent the failure modes the frontend distinguishes for
// user messaging.
var (
	// ErrNotAuthenticated is returned when an operation requires a session
	// token and none is present. Blocked locally, no request is sent.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the backend rejects the token
	// (401/403). Reported distinctly from other server errors.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoOffersLeft is returned when a purchase is attempted on a property
	// with no visit slots remaining.
	ErrNoOffersLeft = errors.New("no visit slots remaining")

	// ErrInvalidAmount is returned for a recharge amount that is not a
	// positive number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrIncompleteHandoff is returned when the gateway handoff payload is
	// missing property_url, property_id or deposit_token. Submission to the
	// gateway is blocked.
	ErrIncompleteHandoff = errors.New("incomplete gateway handoff payload")

	// ErrCallbackCancelled is returned when the gateway callback arrives
	// without token_ws or property_id. Treated as a user cancellation, not a
	// server error.
	ErrCallbackCancelled = errors.New("payment cancelled by user")

	// ErrCommitInFlight is returned when a commit for the same
	// (token_ws, property_id) pair is already running.
	ErrCommitInFlight = errors.New("commit already in progress")

	// ErrRequestFailed is returned for backend-reported business errors. The
	// wrapping APIError carries the server's message verbatim.
	ErrRequestFailed = errors.New("request rejected by backend")

	// ErrBackendUnavailable is returned for transport-level failures talking
	// to the backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// APIError wraps a backend-reported business error. Message carries the
// server's error text verbatim so views can surface it unchanged.
type APIError struct {
	Err        error
	Message    string
	StatusCode int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with APIError.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates an APIError around a sentinel error.
func NewAPIError(err error, message string, statusCode int) *APIError {
	return &APIError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}

// UserMessage extracts the message to show the user for err: the backend's
// verbatim text when present, a fixed text for the session-expired case, and
// the fallback otherwise.
func UserMessage(err error, fallback string) string {
	if errors.Is(err, ErrSessionExpired) {
		return "Tu sesión expiró. Inicia sesión nuevamente."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
