package omclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestAsyncClient(t *testing.T, server *httptest.Server, options ...Option) *AsyncClient {
	t.Helper()
	opts := append([]Option{WithToken("test-token"), WithHTTPClient(server.Client())}, options...)
	client, err := NewAsync(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewAsync failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAsyncClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	call := client.Get(context.Background(), "tables", nil)

	result, err := call.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if _, ok := result["data"]; !ok {
		t.Error("Expected decoded response body")
	}

	// Wait is repeatable; every caller sees the same outcome.
	again, err := call.Wait()
	if err != nil {
		t.Fatalf("Second Wait failed: %v", err)
	}
	if len(again) != len(result) {
		t.Error("Expected identical result on repeated Wait")
	}
}

func TestAsyncClientDoneSelect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	a := client.Get(context.Background(), "tables", nil)
	b := client.Get(context.Background(), "users", nil)

	for remaining := 2; remaining > 0; {
		select {
		case <-a.Done():
			a = &Call{done: make(chan struct{})} // swap in a never-ready handle
			remaining--
		case <-b.Done():
			b = &Call{done: make(chan struct{})}
			remaining--
		case <-time.After(5 * time.Second):
			t.Fatal("Calls did not complete")
		}
	}
}

func TestAsyncClientDeferredLogin(t *testing.T) {
	var logins atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/login" {
			logins.Add(1)
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "issued-token"})
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer issued-token" {
			t.Errorf("Expected issued bearer, got %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewAsync(server.URL, WithLoginCredentials("admin", "secret"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewAsync failed: %v", err)
	}
	defer client.Close()

	// Construction alone must not authenticate.
	if got := logins.Load(); got != 0 {
		t.Fatalf("Expected no login at construction, got %d", got)
	}

	if _, err := client.Get(context.Background(), "tables", nil).Wait(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := logins.Load(); got != 1 {
		t.Errorf("Expected login on first call, got %d", got)
	}
}

func TestAsyncClientConcurrentFirstCallsShareLogin(t *testing.T) {
	var logins atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/login" {
			logins.Add(1)
			time.Sleep(20 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "issued-token"})
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewAsync(server.URL, WithLoginCredentials("admin", "secret"), WithHTTPClient(server.Client()), WithoutCache())
	if err != nil {
		t.Fatalf("NewAsync failed: %v", err)
	}
	defer client.Close()

	const callers = 50
	calls := make([]*Call, callers)
	for i := range calls {
		calls[i] = client.Get(context.Background(), "tables", nil)
	}
	for i, call := range calls {
		if _, err := call.Wait(); err != nil {
			t.Errorf("Call %d failed: %v", i, err)
		}
	}
	if got := logins.Load(); got != 1 {
		t.Errorf("Expected exactly 1 login exchange, got %d", got)
	}
}

func TestAsyncClientRetryIsolation(t *testing.T) {
	var slow atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "flaky" {
			if slow.Add(1) < 3 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server,
		WithoutCache(),
		WithMaxRetries(3),
		WithInitialBackoff(100*time.Millisecond),
		WithMaxBackoff(time.Second),
	)
	ctx := context.Background()

	flaky := client.Get(ctx, "search/query", Params{"q": "flaky"})
	healthy := client.Get(ctx, "search/query", Params{"q": "healthy"})

	// The healthy call completes while the flaky one is still backing off.
	start := time.Now()
	if _, err := healthy.Wait(); err != nil {
		t.Fatalf("Healthy call failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Errorf("Healthy call was delayed by a neighbor's backoff: %v", elapsed)
	}

	if _, err := flaky.Wait(); err != nil {
		t.Fatalf("Flaky call should recover after retries, got %v", err)
	}
}

func TestAsyncClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	_, err := client.Get(context.Background(), "tables/missing", nil).Wait()
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if !errors.Is(err, &ClientError{Type: ErrorTypeClient}) {
		t.Errorf("Expected Client error, got %v", err)
	}
}

func TestAsyncClientDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		w.Write([]byte(`{"deleted": true}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	value, err := client.Delete(context.Background(), "tables/abc", nil).Wait()
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if value != nil {
		t.Errorf("Expected nil value from Delete, got %v", value)
	}
}

func TestAsyncClientClosedFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := client.Get(context.Background(), "tables", nil).Wait()
	if !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
}

func TestAsyncClientSharedCacheAcrossCalls(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestAsyncClient(t, server)
	ctx := context.Background()

	if _, err := client.Get(ctx, "teams", nil).Wait(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := client.Get(ctx, "teams", nil).Wait(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Expected second read served from cache, got %d requests", got)
	}
}
