// Package habitica is a client for the Habitica v3 REST API.
package habitica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/metrics"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source"
)

// DefaultBaseURL is the public Habitica API root.
const DefaultBaseURL = "https://habitica.com/api/v3"

const appName = "TODO-Overs"

// Decrypter opens a stored API token.
type Decrypter interface {
	Decrypt(ciphertext []byte) (string, error)
}

// Client is a thin HTTP client for the Habitica API. It decrypts the
// caller's token per request, paces requests with a token bucket, and
// classifies responses into the source error taxonomy. It does not
// retry; that is the caller's backoff loop.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	limiter    *rate.Limiter
	decrypter  Decrypter
	now        func() time.Time
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestsPerMinute paces outgoing requests. Zero disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithClientID sets a fixed x-client header. By default it is derived
// from the calling user's id.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithClock overrides the time source used for due dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Habitica client rooted at baseURL.
func NewClient(baseURL string, decrypter Decrypter, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		decrypter: decrypter,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
		log: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call. endpoint is the path template used
// as a metrics label.
type request struct {
	method   string
	path     string
	endpoint string
	body     interface{}
}

// do builds the request, authenticates it, classifies the status and
// decodes the envelope's data into result.
func do[T any](ctx context.Context, c *Client, cred model.Credential, r request) (T, error) {
	var zero T

	token, err := c.decrypter.Decrypt(cred.EncryptedToken)
	if err != nil {
		return zero, fmt.Errorf("%w: credential for user %s: %w", source.ErrTransient, cred.UserID, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return zero, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bodyReader)
	if err != nil {
		return zero, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-client", c.clientHeader(cred.UserID))
	req.Header.Set("x-api-user", cred.UserID)
	req.Header.Set("x-api-key", token)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRemote(r.method, r.endpoint, 0, elapsed)
		c.log.LogRemoteCall(r.method, r.endpoint, 0, float64(elapsed.Milliseconds()), err)
		return zero, fmt.Errorf("executing request %s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("reading response body: %w", err)
	}

	statusErr := classifyStatus(r, cred.UserID, resp.StatusCode, respBody)
	c.metrics.ObserveRemote(r.method, r.endpoint, resp.StatusCode, elapsed)
	c.log.LogRemoteCall(r.method, r.endpoint, resp.StatusCode, float64(elapsed.Milliseconds()), statusErr)
	if statusErr != nil {
		return zero, statusErr
	}

	var env envelope[T]
	if err := json.Unmarshal(respBody, &env); err != nil {
		return zero, &source.DecodeError{Path: r.path, Err: err}
	}
	if !env.Success {
		return zero, &source.DecodeError{
			Path: r.path,
			Err:  fmt.Errorf("unsuccessful envelope: %s %s", env.Error, env.Message),
		}
	}
	return env.Data, nil
}

func classifyStatus(r request, userID string, code int, body []byte) error {
	switch {
	case code == http.StatusOK || code == http.StatusCreated:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", r.method, r.path, source.ErrRateLimited)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", r.method, r.path, source.ErrNotFound)
	case code == http.StatusUnauthorized:
		var env envelope[json.RawMessage]
		msg := "check the API token"
		if json.Unmarshal(body, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		return &source.AuthError{UserID: userID, Message: msg}
	default:
		return &source.StatusError{
			Method: r.method,
			Path:   r.path,
			Code:   code,
			Body:   truncate(string(body), 200),
		}
	}
}

func (c *Client) clientHeader(userID string) string {
	if c.clientID != "" {
		return c.clientID
	}
	return userID + "-" + appName
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
