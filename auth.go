package omclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// loginEndpoint is the fixed path for the username/password exchange.
const loginEndpoint = "/api/v1/users/login"

// authenticator resolves the bearer credential presented on every request.
// A pre-issued token is used verbatim; username/password pairs are exchanged
// for a token via the login endpoint. Resolution happens at most once per
// instance: eagerly for the blocking client, lazily on first request for the
// async client. Concurrent lazy resolvers are collapsed into a single login
// call by the singleflight group.
type authenticator struct {
	username string
	password string
	loginURL string

	httpClient *http.Client
	logger     Logger
	metrics    *MetricsCollector

	group singleflight.Group

	mu    sync.RWMutex
	token string
	fatal error // sticky Authentication error once the exchange has failed
}

// newAuthenticator validates that exactly one credential form was supplied.
// token takes precedence when both are present, matching the upstream
// service's own client behavior.
func newAuthenticator(host, token, username, password string, httpClient *http.Client, logger Logger, metrics *MetricsCollector) (*authenticator, error) {
	a := &authenticator{
		username:   username,
		password:   password,
		loginURL:   host + loginEndpoint,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}

	switch {
	case token != "":
		a.token = token
	case username != "" && password != "":
		// Exchange deferred to resolve().
	default:
		return nil, newConfigurationError("either an API token or username/password must be provided")
	}

	return a, nil
}

// resolve returns the bearer token, performing the login exchange if it has
// not happened yet. All concurrent first callers share one in-flight
// exchange and one outcome.
func (a *authenticator) resolve(ctx context.Context) (string, error) {
	a.mu.RLock()
	token, fatal := a.token, a.fatal
	a.mu.RUnlock()

	if fatal != nil {
		return "", fatal
	}
	if token != "" {
		return token, nil
	}

	ch := a.group.DoChan("login", func() (interface{}, error) {
		return a.login(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &ClientError{
			Type:    ErrorTypeTransient,
			Message: "authentication canceled",
			Cause:   ctx.Err(),
		}
	}
}

// login performs the credential exchange and records the outcome. The
// password is base64-encoded as the service requires; this is transport
// obfuscation, not cryptography.
func (a *authenticator) login(ctx context.Context) (string, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(a.password))
	payload, err := json.Marshal(map[string]string{
		"email":    a.username,
		"password": encoded,
	})
	if err != nil {
		return "", a.fail(newAuthenticationError("login request encoding failed", 0, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL, bytes.NewReader(payload))
	if err != nil {
		return "", a.fail(newAuthenticationError("login request construction failed", 0, err))
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	if a.logger != nil {
		a.logger.Debug("performing login exchange", "email", a.username)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.RecordLogin(false)
		// Transport failures during login are not sticky: the service may
		// simply not be reachable yet.
		return "", newAuthenticationError("login request failed", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		a.metrics.RecordLogin(false)
		return "", newAuthenticationError("login response read failed", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.metrics.RecordLogin(false)
		return "", a.fail(newAuthenticationError(
			fmt.Sprintf("login failed: HTTP %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode, nil))
	}

	var loginResp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil {
		a.metrics.RecordLogin(false)
		return "", a.fail(newAuthenticationError("login response decoding failed", resp.StatusCode, err))
	}
	if loginResp.AccessToken == "" {
		a.metrics.RecordLogin(false)
		return "", a.fail(newAuthenticationError("login succeeded but no access token received", resp.StatusCode, nil))
	}

	a.mu.Lock()
	a.token = loginResp.AccessToken
	a.mu.Unlock()

	a.metrics.RecordLogin(true)
	if a.logger != nil {
		a.logger.Info("authenticated via login exchange", "email", a.username)
	}

	return loginResp.AccessToken, nil
}

// fail records a fatal authentication outcome so later calls fail fast
// instead of re-issuing the exchange.
func (a *authenticator) fail(err *ClientError) error {
	a.mu.Lock()
	a.fatal = err
	a.mu.Unlock()
	return err
}
