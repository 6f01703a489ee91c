package upstream

import (
	"errors"
	"fmt"
)

// FallbackMessage is reported when the upstream gives no message of its own.
const FallbackMessage = "API request failed"

var (
	// ErrUnauthorized is returned when the upstream answers 401.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrNoToken is returned before any network call when a bearer endpoint is called without a token.
	ErrNoToken = errors.New("No token provided")
)

// RequestError is any other non-2xx answer or a transport failure (Status 0).
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream: %s", e.Message)
	}
	return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err means the session is invalid: an upstream 401 or a missing token.
// Callers redirect to login instead of showing the error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoToken)
}

// Message returns the user-facing message for err: the upstream message when there is one,
// otherwise FallbackMessage.
func Message(err error) string {
	var re *RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return FallbackMessage
}
