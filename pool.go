package omclient

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Default connection pool limits, shared by every client of the same
// calling convention within the process.
const (
	DefaultMaxKeepAliveConnections = 50
	DefaultMaxConnections          = 200
)

// poolKind selects the process-wide transport a client draws connections
// from. The blocking and async facades deliberately do not share a pool so
// long-running async traffic cannot starve interactive blocking callers.
type poolKind int

const (
	poolBlocking poolKind = iota
	poolAsync
)

type sharedPool struct {
	once      sync.Once
	transport *http.Transport
}

var pools [2]sharedPool

// sharedTransport returns the lazily-built transport for the given calling
// convention. The first caller's limits win; the pool is retained for the
// life of the process and is never torn down by a client's Close.
func sharedTransport(kind poolKind, maxKeepAlive, maxConns int) *http.Transport {
	p := &pools[kind]
	p.once.Do(func() {
		if maxKeepAlive <= 0 {
			maxKeepAlive = DefaultMaxKeepAliveConnections
		}
		if maxConns <= 0 {
			maxConns = DefaultMaxConnections
		}
		p.transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          maxKeepAlive,
			MaxIdleConnsPerHost:   maxKeepAlive,
			MaxConnsPerHost:       maxConns,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
			ForceAttemptHTTP2:     true,
		}
	})
	return p.transport
}
