// Package httpclient provides the outbound HTTP client used by the domain services.
//
// Every call runs an explicit retry loop: each attempt gets its own timeout, and
// network failures, timeouts, 429 and 5xx responses are retried with exponential
// backoff and jitter. Other 4xx responses surface immediately. Failures are
// returned as *errors.AppError classified by the error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	"github.com/ribbonapp/ribbon-core/internal/metrics"
)

// RequestIDHeader carries a per-call identifier, constant across retries.
const RequestIDHeader = "X-Request-ID"

// ErrorReporter records final request failures.
type ErrorReporter interface {
	Log(ctx context.Context, err error, details map[string]any)
}

// Response is a successful (2xx/3xx) response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into dst.
func (r *Response) Decode(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return apperrors.NewValidationError("response body is not valid JSON", err).
			WithStatus(r.StatusCode)
	}
	return nil
}

// Client is a retrying HTTP client. It is safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *rate.Limiter
	reporter ErrorReporter
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	random   func() float64

	mu      sync.RWMutex
	headers map[string]string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithReporter sets the reporter that receives final failures.
func WithReporter(r ErrorReporter) ClientOption {
	return func(c *Client) { c.reporter = r }
}

// WithMetrics records one operation per call under the "http" domain.
func WithMetrics(m metrics.BusinessMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the backoff sleep. fn must return ctx.Err() when ctx ends first.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = fn }
}

// WithRandom replaces the jitter source. fn must return values in [0, 1).
func WithRandom(fn func() float64) ClientOption {
	return func(c *Client) { c.random = fn }
}

// New creates a Client from a validated configuration.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{},
		metrics: metrics.NewNoOpBusinessMetrics(),
		logger:  slog.Default(),
		sleep:   sleepContext,
		random:  rand.Float64,
		headers: make(map[string]string, len(cfg.DefaultHeaders)),
	}
	maps.Copy(c.headers, cfg.DefaultHeaders)

	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetAuthToken sets the bearer token sent with every subsequent request.
func (c *Client) SetAuthToken(token string) {
	c.SetHeader("Authorization", "Bearer "+token)
}

// ClearAuthToken stops sending the bearer token.
func (c *Client) ClearAuthToken() {
	c.RemoveHeader("Authorization")
}

// SetHeader sets a default header for every subsequent request.
func (c *Client) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[http.CanonicalHeaderKey(name)] = value
}

// RemoveHeader removes a default header.
func (c *Client) RemoveHeader(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.headers {
		if strings.EqualFold(key, name) {
			delete(c.headers, key)
		}
	}
}

// Headers returns a copy of the default headers.
func (c *Client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.headers)
}

// RequestOption customizes a single call.
type RequestOption func(*http.Request)

// WithHeader sets a header on a single call, overriding the defaults.
func WithHeader(name, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(name, value) }
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, opts...)
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, opts...)
}

// Put issues a PUT request with body encoded as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, endpoint, body, opts...)
}

// Patch issues a PATCH request with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, body, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, opts...)
}

// Do issues a request with the retry policy. A nil body sends no payload.
func (c *Client) Do(
	ctx context.Context,
	method, endpoint string,
	body any,
	opts ...RequestOption,
) (*Response, error) {
	start := time.Now()
	operation := "request_" + strings.ToLower(method)

	resp, attempts, err := c.doWithRetry(ctx, method, endpoint, body, opts)

	if err != nil {
		appErr := apperrors.Normalize(err).WithDetails(map[string]any{
			"method":   method,
			"endpoint": endpoint,
			"attempts": attempts,
		})
		c.report(ctx, appErr)
		err = appErr
	}
	metrics.Observe(ctx, c.metrics, metrics.DomainHTTP, operation, start, err)

	return resp, err
}

func (c *Client) doWithRetry(
	ctx context.Context,
	method, endpoint string,
	body any,
	opts []RequestOption,
) (*Response, int, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, apperrors.NewValidationError("request body cannot be encoded as JSON", err)
		}
		payload = b
	}

	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to generate request id")
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, attempt, canceled(ctx, err)
			}
		}

		resp, err := c.attempt(ctx, method, endpoint, payload, requestID.String(), opts)
		if err == nil {
			return resp, attempt + 1, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt + 1, canceled(ctx, ctx.Err())
		}
		if !apperrors.KindOf(err).Retryable() || attempt == c.cfg.MaxRetries {
			return nil, attempt + 1, err
		}

		delay := RetryDelay(attempt, c.cfg.RetryBaseDelay, c.cfg.MaxRetryDelay, c.random())
		c.logger.Debug("retrying request",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		c.metrics.RecordRetry(ctx, metrics.DomainHTTP, "request_"+strings.ToLower(method))

		if err := c.sleep(ctx, delay); err != nil {
			return nil, attempt + 1, canceled(ctx, err)
		}
	}
	return nil, c.cfg.MaxRetries + 1, lastErr
}

// attempt performs one request under its own timeout. The timeout context is
// always cancelled before returning, which aborts the in-flight request and
// releases its timer.
func (c *Client) attempt(
	ctx context.Context,
	method, endpoint string,
	payload []byte,
	requestID string,
	opts []RequestOption,
) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.url(endpoint), bodyReader)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid request", err)
	}

	for name, value := range c.Headers() {
		req.Header.Set(name, value)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, requestID)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(attemptCtx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(attemptCtx, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) transportError(attemptCtx context.Context, err error) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewAppError(apperrors.KindTimeout, "request timed out").
			WithCause(err).
			WithDetail("timeout", c.cfg.Timeout.String())
	}
	return apperrors.NewAppError(apperrors.KindNetwork, "network request failed").WithCause(err)
}

func (c *Client) report(ctx context.Context, err *apperrors.AppError) {
	c.logger.Warn("request failed",
		slog.String("kind", string(err.Kind)),
		slog.Any("details", err.Details),
		slog.Any("error", err.Err),
	)
	if c.reporter == nil {
		return
	}
	c.reporter.Log(ctx, err, map[string]any{"component": "http_client"})
}

// canceled converts a cancellation of the caller's context into an error that is
// never retried.
func canceled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewAppError(apperrors.KindTimeout, "request deadline exceeded").WithCause(err)
	}
	return apperrors.NewAppError(apperrors.KindUnknown, "request canceled").WithCause(err)
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// statusError builds the error for a 4xx or 5xx response. JSON bodies may carry
// message and code; anything else falls back to the status text.
func statusError(resp *http.Response, body []byte) error {
	kind := apperrors.KindForStatus(resp.StatusCode)
	appErr := apperrors.NewAppError(kind, http.StatusText(resp.StatusCode)).WithStatus(resp.StatusCode)

	if isJSON(resp.Header.Get("Content-Type")) {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			if eb.Message != "" {
				appErr.Message = eb.Message
			}
			if eb.Code != "" {
				appErr = appErr.WithCode(eb.Code)
			}
		}
	}

	if appErr.Message == "" {
		appErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return appErr
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
