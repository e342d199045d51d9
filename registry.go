package omclient

import "sync"

// Registry holds at most one blocking and one async client so that an
// application's call sites share connections, caches, and tokens instead
// of each constructing their own. It is an explicit value the caller
// owns, not package state.
type Registry struct {
	mu     sync.Mutex
	client *Client
	async  *AsyncClient
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Initialize builds and stores the blocking client. Calling it again
// replaces the stored client; the previous one is closed first.
func (r *Registry) Initialize(host string, options ...Option) (*Client, error) {
	c, err := New(host, options...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	old := r.client
	r.client = c
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return c, nil
}

// InitializeAsync builds and stores the async client, replacing and
// closing any previous one.
func (r *Registry) InitializeAsync(host string, options ...Option) (*AsyncClient, error) {
	c, err := NewAsync(host, options...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	old := r.async
	r.async = c
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return c, nil
}

// Client returns the stored blocking client, or nil before Initialize.
func (r *Registry) Client() *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// AsyncClient returns the stored async client, or nil before
// InitializeAsync.
func (r *Registry) AsyncClient() *AsyncClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.async
}

// Close closes both stored clients and clears the registry. Safe to call
// more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	client, async := r.client, r.async
	r.client, r.async = nil, nil
	r.mu.Unlock()

	if client != nil {
		client.Close()
	}
	if async != nil {
		async.Close()
	}
}
