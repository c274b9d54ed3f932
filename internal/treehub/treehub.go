// Package treehub implements the remote side of a push: credential
// handling, the authenticated server handle, and the HTTP transport
// driver the scheduler dispatches through.
package treehub

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrAuthFailed is returned when credentials cannot produce a usable
// remote endpoint.
var ErrAuthFailed = errors.New("treehub: authentication failed")

// BasicAuth carries username/password credentials.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credentials describe how to reach and authenticate against the
// remote store. Exactly one of BasicAuth or Token may be set; neither
// means anonymous access.
type Credentials struct {
	Server    string     `json:"server"`
	BasicAuth *BasicAuth `json:"basic_auth,omitempty"`
	Token     string     `json:"token,omitempty"`
}

// LoadCredentials reads a credentials JSON file.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("%w: read credentials: %v", ErrAuthFailed, err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("%w: parse credentials: %v", ErrAuthFailed, err)
	}
	return creds, nil
}

// Server is an authenticated remote endpoint handle. It is safe for
// concurrent use by the driver's in-flight operations.
type Server struct {
	base   *url.URL
	client *http.Client
	auth   func(*http.Request)
}

// Authenticate validates credentials and builds the endpoint handle,
// loading an optional CA bundle into the TLS configuration. It performs
// no network I/O; a bad endpoint surfaces on the first request.
func Authenticate(creds Credentials, caBundle string) (*Server, error) {
	if creds.Server == "" {
		return nil, fmt.Errorf("%w: no server in credentials", ErrAuthFailed)
	}
	base, err := url.Parse(creds.Server)
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %v", ErrAuthFailed, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: server url %q: unsupported scheme", ErrAuthFailed, creds.Server)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if caBundle != "" {
		pem, err := os.ReadFile(caBundle)
		if err != nil {
			return nil, fmt.Errorf("%w: read CA bundle: %v", ErrAuthFailed, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: CA bundle %q holds no certificates", ErrAuthFailed, caBundle)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	auth := func(*http.Request) {}
	switch {
	case creds.BasicAuth != nil && creds.Token != "":
		return nil, fmt.Errorf("%w: both basic auth and token set", ErrAuthFailed)
	case creds.BasicAuth != nil:
		user, pass := creds.BasicAuth.Username, creds.BasicAuth.Password
		auth = func(req *http.Request) { req.SetBasicAuth(user, pass) }
	case creds.Token != "":
		header := "Bearer " + creds.Token
		auth = func(req *http.Request) { req.Header.Set("Authorization", header) }
	}

	return &Server{
		base:   base,
		client: &http.Client{Transport: transport},
		auth:   auth,
	}, nil
}

// URL returns the endpoint base URL.
func (s *Server) URL() string { return s.base.String() }

// NewRequest builds an authenticated request for a path relative to
// the server base.
func (s *Server) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := s.base.JoinPath(strings.Split(path, "/")...)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	s.auth(req)
	return req, nil
}

// Do executes a request on the server's client.
func (s *Server) Do(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

// UpdateRef points a mutable root reference at a commit: one small
// fire-and-forget call, retried with backoff, kept well away from the
// scheduler's concurrency model.
func (s *Server) UpdateRef(ctx context.Context, ref, commitHash string) error {
	_, err := retry(ctx, 3, func() (struct{}, error) {
		req, err := s.NewRequest(ctx, http.MethodPost, "refs/heads/"+ref, strings.NewReader(commitHash))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "text/plain")
		resp, err := s.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("ref %s: unexpected status %d", ref, resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
