package omclient

import (
	"errors"
	"fmt"
)

// Error type constants classify every failure the client can surface.
const (
	// ErrorTypeConfiguration marks construction failures: neither a token
	// nor username/password credentials were supplied, or options are
	// invalid. Never retried.
	ErrorTypeConfiguration = "Configuration"

	// ErrorTypeAuthentication marks a failed login exchange, or a login
	// response that omitted the access token. Fatal for the instance.
	ErrorTypeAuthentication = "Authentication"

	// ErrorTypeClient marks 4xx responses, surfaced immediately without
	// retry. Also used for calls issued after Close.
	ErrorTypeClient = "Client"

	// ErrorTypeTransient marks 5xx, network and timeout failures that
	// exhausted the retry budget.
	ErrorTypeTransient = "Transient"

	// ErrorTypeUnexpected marks everything else: body decode failures,
	// request construction errors and other non-transport surprises.
	ErrorTypeUnexpected = "Unexpected"
)

// ErrClientClosed is the cause carried by the ClientError returned from
// every verb once the owning client has been closed.
var ErrClientClosed = errors.New("omclient: client is closed")

// ClientError is the single error kind exported by this package. Every
// transport or status failure is normalized into one of these before it
// crosses the facade boundary; raw *url.Error and friends never escape.
type ClientError struct {
	Type       string
	Message    string
	StatusCode int // HTTP status when one was received, otherwise 0
	Attempts   int // total attempts made when retries were involved
	Endpoint   string
	Cause      error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches two ClientErrors by Type so callers can use errors.Is with a
// prototype like &ClientError{Type: ErrorTypeClient}.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*ClientError); ok {
		return e.Type == t.Type
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed
// on retry. Client, Authentication and Configuration errors are final.
func IsTransient(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeTransient
	}
	return false
}

func newConfigurationError(message string) *ClientError {
	return &ClientError{Type: ErrorTypeConfiguration, Message: message}
}

func newAuthenticationError(message string, statusCode int, cause error) *ClientError {
	return &ClientError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

func newClosedError(endpoint string) *ClientError {
	return &ClientError{
		Type:     ErrorTypeClient,
		Message:  "client is closed",
		Endpoint: endpoint,
		Cause:    ErrClientClosed,
	}
}
