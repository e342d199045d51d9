package omclient

import (
	"context"
	"net/http"
)

// Client is the blocking facade over the resilient call pipeline. Each verb
// occupies its goroutine for the call's full duration, retry sleeps
// included; concurrency comes from issuing calls on multiple goroutines
// against the shared pool. A single Client is safe for concurrent use.
type Client struct {
	core *core
}

// New constructs a blocking client for the given host. Credentials are
// resolved eagerly: when a username/password pair was supplied the login
// exchange happens here, so an authentication failure surfaces from New
// rather than from the first call.
func New(host string, options ...Option) (*Client, error) {
	s := defaultSettings()
	for _, opt := range options {
		opt(s)
	}

	core, err := s.buildCore(host, poolBlocking)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := core.auth.resolve(ctx); err != nil {
		return nil, err
	}

	if core.logger != nil {
		core.logger.Info("client initialized", "host", core.host)
	}
	return &Client{core: core}, nil
}

// Get performs a read. Reads of cacheable resource types are served from
// the tier cache when fresh.
func (c *Client) Get(ctx context.Context, endpoint string, params Params) (map[string]any, error) {
	return c.core.get(ctx, endpoint, params)
}

// Post creates an entity. Writes bypass the cache entirely.
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]any) (map[string]any, error) {
	return c.core.do(ctx, http.MethodPost, endpoint, nil, body)
}

// Put creates or updates an entity. Writes bypass the cache entirely.
func (c *Client) Put(ctx context.Context, endpoint string, body map[string]any) (map[string]any, error) {
	return c.core.do(ctx, http.MethodPut, endpoint, nil, body)
}

// Delete removes an entity. The response body is discarded on success.
// params may carry the hardDelete and recursive flags.
func (c *Client) Delete(ctx context.Context, endpoint string, params Params) error {
	_, err := c.core.do(ctx, http.MethodDelete, endpoint, params, nil)
	return err
}

// Host returns the normalized remote host this client addresses.
func (c *Client) Host() string {
	return c.core.host
}

// ClearCache drops every cached read in every tier.
func (c *Client) ClearCache() {
	if c.core.router != nil {
		c.core.router.ClearAll()
	}
}

// ClearResourceCache drops cached reads for one resource type only.
func (c *Client) ClearResourceCache(resourceType string) {
	if c.core.router != nil {
		c.core.router.ClearResource(resourceType)
	}
}

// CacheStats snapshots each tier's size, capacity, TTL and hit/miss
// counters, keyed by tier name. Nil when caching is disabled.
func (c *Client) CacheStats() map[string]CacheStats {
	if c.core.router == nil {
		return nil
	}
	return c.core.router.Stats()
}

// Close marks the client closed; subsequent calls fail fast without
// touching the network. The shared connection pool is left running for
// other clients. Close is idempotent.
func (c *Client) Close() error {
	if c.core.closed.Swap(true) {
		return nil
	}
	if c.core.logger != nil {
		c.core.logger.Info("client closed", "host", c.core.host)
	}
	return nil
}
