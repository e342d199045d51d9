package omclient

import (
	"context"
	"net/http"
)

// AsyncClient is the non-blocking facade. Verbs return immediately with a
// *Call; arbitrarily many calls may be in flight on one client, and a
// retry backoff suspends only the call that is waiting, never its
// neighbors. The retry, caching and error semantics are byte-for-byte the
// blocking client's: both facades run the same core.
type AsyncClient struct {
	core *core
}

// NewAsync constructs a non-blocking client. Unlike New, credentials are
// not resolved here: when a username/password pair was supplied the login
// exchange is deferred to the first call, and concurrent first callers
// share a single exchange.
func NewAsync(host string, options ...Option) (*AsyncClient, error) {
	s := defaultSettings()
	for _, opt := range options {
		opt(s)
	}

	core, err := s.buildCore(host, poolAsync)
	if err != nil {
		return nil, err
	}

	if core.logger != nil {
		core.logger.Info("async client initialized", "host", core.host)
	}
	return &AsyncClient{core: core}, nil
}

// Call is a handle to one in-flight request.
type Call struct {
	done  chan struct{}
	value map[string]any
	err   error
}

// Wait blocks until the call completes and returns its outcome. Wait may
// be called any number of times; every caller sees the same result.
func (c *Call) Wait() (map[string]any, error) {
	<-c.done
	return c.value, c.err
}

// Done returns a channel closed when the call completes, for callers that
// want to select over several calls.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

func (a *AsyncClient) run(fn func() (map[string]any, error)) *Call {
	call := &Call{done: make(chan struct{})}
	go func() {
		call.value, call.err = fn()
		close(call.done)
	}()
	return call
}

// Get performs a read without blocking the caller. Cacheable resource
// types are served from the tier cache when fresh.
func (a *AsyncClient) Get(ctx context.Context, endpoint string, params Params) *Call {
	return a.run(func() (map[string]any, error) {
		return a.core.get(ctx, endpoint, params)
	})
}

// Post creates an entity without blocking the caller.
func (a *AsyncClient) Post(ctx context.Context, endpoint string, body map[string]any) *Call {
	return a.run(func() (map[string]any, error) {
		return a.core.do(ctx, http.MethodPost, endpoint, nil, body)
	})
}

// Put creates or updates an entity without blocking the caller.
func (a *AsyncClient) Put(ctx context.Context, endpoint string, body map[string]any) *Call {
	return a.run(func() (map[string]any, error) {
		return a.core.do(ctx, http.MethodPut, endpoint, nil, body)
	})
}

// Delete removes an entity without blocking the caller. The returned
// Call's value is always nil; only the error is meaningful.
func (a *AsyncClient) Delete(ctx context.Context, endpoint string, params Params) *Call {
	return a.run(func() (map[string]any, error) {
		return a.core.do(ctx, http.MethodDelete, endpoint, params, nil)
	})
}

// Host returns the normalized remote host this client addresses.
func (a *AsyncClient) Host() string {
	return a.core.host
}

// ClearCache drops every cached read in every tier.
func (a *AsyncClient) ClearCache() {
	if a.core.router != nil {
		a.core.router.ClearAll()
	}
}

// ClearResourceCache drops cached reads for one resource type only.
func (a *AsyncClient) ClearResourceCache(resourceType string) {
	if a.core.router != nil {
		a.core.router.ClearResource(resourceType)
	}
}

// CacheStats snapshots each tier, keyed by tier name. Nil when caching is
// disabled.
func (a *AsyncClient) CacheStats() map[string]CacheStats {
	if a.core.router == nil {
		return nil
	}
	return a.core.router.Stats()
}

// Close marks the client closed; in-flight calls finish, later calls fail
// fast. The shared pool is untouched. Close is idempotent.
func (a *AsyncClient) Close() error {
	if a.core.closed.Swap(true) {
		return nil
	}
	if a.core.logger != nil {
		a.core.logger.Info("async client closed", "host", a.core.host)
	}
	return nil
}
