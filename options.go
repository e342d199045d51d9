package omclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Option configures a Client or AsyncClient at construction.
type Option func(*settings)

// settings collects everything the bootstrap layer can supply. Both facades
// share it so the two calling conventions cannot drift apart.
type settings struct {
	token    string
	username string
	password string

	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	timeout           time.Duration

	maxKeepAlive int
	maxConns     int

	cacheDisabled bool
	policy        RetryPolicy
	metrics       *MetricsCollector
	logger        Logger
	userAgent     string
	httpClient    *http.Client
}

func defaultSettings() *settings {
	return &settings{
		maxRetries:        3,
		initialBackoff:    500 * time.Millisecond,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0,
		timeout:           30 * time.Second,
		maxKeepAlive:      DefaultMaxKeepAliveConnections,
		maxConns:          DefaultMaxConnections,
		userAgent:         "op-mcp-mod/" + Version,
	}
}

// WithToken supplies a pre-issued bearer token, used verbatim.
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = token
	}
}

// WithLoginCredentials supplies a username/password pair to exchange for a
// token via the login endpoint.
func WithLoginCredentials(username, password string) Option {
	return func(s *settings) {
		s.username = username
		s.password = password
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		s.maxRetries = n
	}
}

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) Option {
	return func(s *settings) {
		s.initialBackoff = d
	}
}

// WithMaxBackoff caps the computed retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *settings) {
		s.maxBackoff = d
	}
}

// WithBackoffMultiplier sets the exponential growth factor between retries.
func WithBackoffMultiplier(f float64) Option {
	return func(s *settings) {
		s.backoffMultiplier = f
	}
}

// WithJitter sets the jitter factor for backoff (clamped to 0.0–1.0).
func WithJitter(f float64) Option {
	return func(s *settings) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		s.jitter = f
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithPoolLimits sets the shared pool's keep-alive and total connection
// caps. The pool is built once per calling convention; the first client to
// touch it fixes the limits for the process.
func WithPoolLimits(maxKeepAlive, maxConns int) Option {
	return func(s *settings) {
		s.maxKeepAlive = maxKeepAlive
		s.maxConns = maxConns
	}
}

// WithoutCache disables the read cache; every GET hits the network.
func WithoutCache() Option {
	return func(s *settings) {
		s.cacheDisabled = true
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *settings) {
		s.policy = policy
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(s *settings) {
		s.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(s *settings) {
		s.metrics = collector
	}
}

// WithLogger sets the structured logger. Nil means silent.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

// WithHTTPClient substitutes the underlying *http.Client, bypassing the
// shared pool. Intended for tests and callers with bespoke transports.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// validate rejects settings a client could not operate under.
func (s *settings) validate() error {
	var problems []string

	if s.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if s.initialBackoff <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if s.maxBackoff < s.initialBackoff {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if s.backoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if s.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if s.maxKeepAlive <= 0 {
		problems = append(problems, "maxKeepAlive connections must be positive")
	}
	if s.maxConns < s.maxKeepAlive {
		problems = append(problems, "maxConns must be greater than or equal to maxKeepAlive")
	}

	if len(problems) > 0 {
		return newConfigurationError(fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// buildCore assembles the shared execution pipeline for either facade.
func (s *settings) buildCore(host string, kind poolKind) (*core, error) {
	if host == "" {
		return nil, newConfigurationError("host must be provided")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	host = strings.TrimRight(host, "/")

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   s.timeout,
			Transport: sharedTransport(kind, s.maxKeepAlive, s.maxConns),
		}
	}

	auth, err := newAuthenticator(host, s.token, s.username, s.password, httpClient, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}

	policy := s.policy
	if policy == nil {
		policy = NewDefaultRetryPolicy(s.maxRetries, s.initialBackoff, s.maxBackoff, s.backoffMultiplier, s.jitter)
	}

	var router *cacheRouter
	if !s.cacheDisabled {
		router = newCacheRouter(s.metrics, s.logger)
	}

	return &core{
		host:       host,
		baseURL:    host + apiBasePath,
		httpClient: httpClient,
		auth:       auth,
		policy:     policy,
		router:     router,
		metrics:    s.metrics,
		logger:     s.logger,
		userAgent:  s.userAgent,
	}, nil
}
