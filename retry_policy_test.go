package omclient

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDefaultRetryPolicyDelaySequence(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0)

	expected := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
	}
	for attempt, want := range expected {
		delay, retry := policy.ShouldRetry(503, nil, nil, attempt)
		if !retry {
			t.Fatalf("Expected retry on attempt %d", attempt)
		}
		if delay != want {
			t.Errorf("Attempt %d: delay = %v, want %v", attempt, delay, want)
		}
	}

	// Budget exhausted after the third retry.
	if _, retry := policy.ShouldRetry(503, nil, nil, 3); retry {
		t.Error("Expected no retry once the budget is spent")
	}
}

func TestDefaultRetryPolicyNetworkErrors(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0)

	delay, retry := policy.ShouldRetry(0, nil, errors.New("connection refused"), 0)
	if !retry {
		t.Fatal("Expected network errors to be retried")
	}
	if delay != 500*time.Millisecond {
		t.Errorf("Expected base delay, got %v", delay)
	}
}

func TestDefaultRetryPolicyClientErrorsNotRetried(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0)

	for _, status := range []int{400, 401, 403, 404, 409, 429} {
		if _, retry := policy.ShouldRetry(status, nil, nil, 0); retry {
			t.Errorf("Expected no retry for status %d", status)
		}
	}
	if _, retry := policy.ShouldRetry(200, nil, nil, 0); retry {
		t.Error("Expected no retry for a success status")
	}
}

func TestDefaultRetryPolicyMaxBackoffCap(t *testing.T) {
	policy := NewDefaultRetryPolicy(10, 500*time.Millisecond, 3*time.Second, 2.0, 0)

	delay, retry := policy.ShouldRetry(500, nil, nil, 8)
	if !retry {
		t.Fatal("Expected retry within budget")
	}
	if delay != 3*time.Second {
		t.Errorf("Expected delay capped at 3s, got %v", delay)
	}
}

func TestDefaultRetryPolicyJitterBounds(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0.5)

	for i := 0; i < 100; i++ {
		delay, retry := policy.ShouldRetry(503, nil, nil, 0)
		if !retry {
			t.Fatal("Expected retry")
		}
		if delay < 500*time.Millisecond || delay > 750*time.Millisecond {
			t.Fatalf("Delay %v outside the jitter window [500ms, 750ms]", delay)
		}
	}
}

func TestDefaultRetryPolicyHonorsRetryAfterSeconds(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0)

	header := http.Header{}
	header.Set("Retry-After", "7")
	delay, retry := policy.ShouldRetry(503, header, nil, 0)
	if !retry {
		t.Fatal("Expected retry")
	}
	if delay != 7*time.Second {
		t.Errorf("Expected Retry-After to win, got %v", delay)
	}
}

func TestDefaultRetryPolicyRetryAfterDate(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 500*time.Millisecond, 10*time.Second, 2.0, 0)

	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(5*time.Second).UTC().Format(http.TimeFormat))
	delay, retry := policy.ShouldRetry(503, header, nil, 0)
	if !retry {
		t.Fatal("Expected retry")
	}
	if delay < 3*time.Second || delay > 5*time.Second {
		t.Errorf("Expected roughly 5s from the date form, got %v", delay)
	}
}

func TestParseRetryAfter(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"-3", 0},
		{"10", 10 * time.Second},
		{"7200", time.Hour}, // capped
		{"garbage", 0},
	}
	for _, tc := range testCases {
		if got := parseRetryAfter(tc.value); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}

	// A date in the past yields no delay.
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("Expected 0 for a past date, got %v", got)
	}
}

func TestDefaultRetryPolicyMaxRetries(t *testing.T) {
	policy := NewDefaultRetryPolicy(5, time.Second, time.Minute, 2.0, 0)
	if policy.MaxRetries() != 5 {
		t.Errorf("Expected 5, got %d", policy.MaxRetries())
	}
}

func TestZeroRetriesNeverRetries(t *testing.T) {
	policy := NewDefaultRetryPolicy(0, 500*time.Millisecond, 10*time.Second, 2.0, 0)
	if _, retry := policy.ShouldRetry(503, nil, errors.New("boom"), 0); retry {
		t.Error("Expected no retry with a zero budget")
	}
}
