package omclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestClientErrorMessage(t *testing.T) {
	err := &ClientError{
		Type:    ErrorTypeClient,
		Message: "HTTP 404: not found",
	}

	expected := "Client: HTTP 404: not found"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestClientErrorMessageWithStatusAndAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ClientError{
		Type:       ErrorTypeTransient,
		Message:    "HTTP 503: unavailable",
		StatusCode: 503,
		Attempts:   4,
		Cause:      cause,
	}

	expected := "Transient: HTTP 503: unavailable (status 503) after 4 attempts: connection refused"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &ClientError{Type: ErrorTypeUnexpected, Message: "decode failed", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause through Unwrap")
	}

	var none *ClientError
	if none.Unwrap() != nil {
		t.Error("Expected nil Unwrap on nil receiver")
	}
}

func TestClientErrorIsMatchesByType(t *testing.T) {
	err := error(&ClientError{Type: ErrorTypeAuthentication, Message: "login failed"})

	if !errors.Is(err, &ClientError{Type: ErrorTypeAuthentication}) {
		t.Error("Expected match against a prototype of the same type")
	}
	if errors.Is(err, &ClientError{Type: ErrorTypeClient}) {
		t.Error("Expected no match against a different type")
	}
}

func TestClientErrorIsThroughWrapping(t *testing.T) {
	inner := &ClientError{Type: ErrorTypeTransient, Message: "HTTP 502: bad gateway"}
	wrapped := fmt.Errorf("listing tables: %w", inner)

	if !errors.Is(wrapped, &ClientError{Type: ErrorTypeTransient}) {
		t.Error("Expected match through fmt.Errorf wrapping")
	}
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", &ClientError{Type: ErrorTypeTransient}, true},
		{"client", &ClientError{Type: ErrorTypeClient}, false},
		{"authentication", &ClientError{Type: ErrorTypeAuthentication}, false},
		{"configuration", &ClientError{Type: ErrorTypeConfiguration}, false},
		{"wrapped transient", fmt.Errorf("outer: %w", &ClientError{Type: ErrorTypeTransient}), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range testCases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClosedErrorCarriesSentinel(t *testing.T) {
	err := newClosedError("tables")

	if !errors.Is(err, ErrClientClosed) {
		t.Error("Expected errors.Is(err, ErrClientClosed) to hold")
	}
	if err.Type != ErrorTypeClient {
		t.Errorf("Expected Client type, got %s", err.Type)
	}
	if err.Endpoint != "tables" {
		t.Errorf("Expected endpoint to be recorded, got %q", err.Endpoint)
	}
}
