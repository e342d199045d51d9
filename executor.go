package omclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

const (
	apiBasePath      = "/api/v1/"
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 64 * 1024
)

// Params carries query parameters for read and delete operations.
type Params map[string]string

// core executes logical calls against the remote catalog. It is shared
// verbatim by the blocking and async facades: retry, caching, auth and
// error normalization behave identically in both; only how the caller
// waits differs.
type core struct {
	host       string
	baseURL    string
	httpClient *http.Client
	auth       *authenticator
	policy     RetryPolicy
	router     *cacheRouter
	metrics    *MetricsCollector
	logger     Logger
	userAgent  string
	closed     atomic.Bool
}

// get routes reads through the cache router when one is configured.
func (c *core) get(ctx context.Context, endpoint string, params Params) (map[string]any, error) {
	if c.closed.Load() {
		return nil, newClosedError(endpoint)
	}
	if c.router == nil {
		return c.do(ctx, http.MethodGet, endpoint, params, nil)
	}
	return c.router.Get(ctx, endpoint, params, func() (map[string]any, error) {
		return c.do(ctx, http.MethodGet, endpoint, params, nil)
	})
}

// do performs one logical call: URL construction, bearer attachment, the
// retry loop and error normalization. Write verbs reach it directly; reads
// arrive via get so cache hits can short-circuit the network.
func (c *core) do(ctx context.Context, method, endpoint string, params Params, body any) (map[string]any, error) {
	if c.closed.Load() {
		return nil, newClosedError(endpoint)
	}

	token, err := c.auth.resolve(ctx)
	if err != nil {
		return nil, err
	}

	fullURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return nil, &ClientError{
			Type:     ErrorTypeUnexpected,
			Message:  "invalid endpoint",
			Endpoint: endpoint,
			Cause:    err,
		}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &ClientError{
				Type:     ErrorTypeUnexpected,
				Message:  "request body encoding failed",
				Endpoint: endpoint,
				Cause:    err,
			}
		}
	}

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)
	start := time.Now()

	var (
		attempt    int
		lastErr    error
		lastStatus int
		lastBody   []byte
	)

	for {
		res, err := c.attempt(ctx, method, fullURL, token, payload)

		if err == nil {
			switch {
			case res.status >= 200 && res.status < 300:
				c.metrics.RecordRequest(method, endpoint, res.status, time.Since(start))
				if method == http.MethodDelete {
					return nil, nil
				}
				return decodeBody(res.body, endpoint)

			case res.status < 500:
				c.metrics.RecordRequest(method, endpoint, res.status, time.Since(start))
				c.metrics.RecordError(ErrorTypeClient, method, endpoint)
				if c.logger != nil {
					c.logger.Error("request failed", "method", method, "endpoint", endpoint, "status", res.status)
				}
				return nil, &ClientError{
					Type:       ErrorTypeClient,
					Message:    fmt.Sprintf("HTTP %d: %s", res.status, string(res.body)),
					StatusCode: res.status,
					Attempts:   attempt + 1,
					Endpoint:   endpoint,
				}
			}
			lastErr, lastStatus, lastBody = nil, res.status, res.body
		} else {
			lastErr, lastStatus, lastBody = err, 0, nil
		}

		var header http.Header
		var status int
		if err == nil {
			header, status = res.header, res.status
		}

		delay, retry := c.policy.ShouldRetry(status, header, err, attempt)
		if !retry {
			c.metrics.RecordRequest(method, endpoint, lastStatus, time.Since(start))
			return nil, c.transientError(method, endpoint, lastStatus, lastBody, lastErr, attempt+1)
		}

		c.metrics.RecordRetry(method, endpoint, attempt+1)
		if c.logger != nil {
			if err != nil {
				c.logger.Warn("transient failure, retrying", "method", method, "endpoint", endpoint, "attempt", attempt+1, "backoff", delay, "error", err.Error())
			} else {
				c.logger.Warn("server error, retrying", "method", method, "endpoint", endpoint, "attempt", attempt+1, "backoff", delay, "status", status)
			}
		}

		if err := sleepContext(ctx, delay); err != nil {
			c.metrics.RecordRequest(method, endpoint, lastStatus, time.Since(start))
			return nil, &ClientError{
				Type:     ErrorTypeTransient,
				Message:  "retry canceled",
				Attempts: attempt + 1,
				Endpoint: endpoint,
				Cause:    err,
			}
		}
		attempt++
	}
}

type attemptResult struct {
	status int
	header http.Header
	body   []byte
}

// attempt performs a single HTTP round trip. The returned error is the raw
// transport error; classification is the caller's job.
func (c *core) attempt(ctx context.Context, method, fullURL, token string, payload []byte) (*attemptResult, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		// Method and URL were validated upstream; treat this as transport.
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", contentTypeJSON)
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &attemptResult{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *core) transientError(method, endpoint string, status int, body []byte, cause error, attempts int) *ClientError {
	c.metrics.RecordError(ErrorTypeTransient, method, endpoint)
	if c.logger != nil {
		c.logger.Error("retries exhausted", "method", method, "endpoint", endpoint, "attempts", attempts)
	}

	message := "request failed"
	if status > 0 {
		message = fmt.Sprintf("HTTP %d: %s", status, string(body))
	}
	return &ClientError{
		Type:       ErrorTypeTransient,
		Message:    message,
		StatusCode: status,
		Attempts:   attempts,
		Endpoint:   endpoint,
		Cause:      cause,
	}
}

func (c *core) buildURL(endpoint string, params Params) (string, error) {
	u, err := url.Parse(c.baseURL + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// decodeBody turns a response body into the opaque JSON object callers
// receive. Empty bodies decode to an empty object.
func decodeBody(body []byte, endpoint string) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{
			Type:     ErrorTypeUnexpected,
			Message:  "response decoding failed",
			Endpoint: endpoint,
			Cause:    err,
		}
	}
	return result, nil
}

// sleepContext waits for d, returning early if ctx is done. Only the
// issuing call suspends; concurrent calls on the same client are untouched.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
