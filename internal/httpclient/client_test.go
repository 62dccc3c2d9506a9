package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

type recordingReporter struct {
	mu      sync.Mutex
	errs    []error
	details []map[string]any
}

func (r *recordingReporter) Log(_ context.Context, err error, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.details = append(r.details, details)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestClient(t *testing.T, baseURL string, opts ...ClientOption) (*Client, *recordedSleeps) {
	t.Helper()

	cfg := DefaultConfig(baseURL)
	cfg.Timeout = time.Second

	sleeps := &recordedSleeps{}
	opts = append([]ClientOption{
		WithSleep(sleeps.sleep),
		WithRandom(func() float64 { return 0.5 }),
	}, opts...)

	client, err := New(cfg, opts...)
	require.NoError(t, err)
	return client, sleeps
}

func TestClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gifts", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","name":"Mug"}]`))
	}))
	defer server.Close()

	client, sleeps := newTestClient(t, server.URL)

	resp, err := client.Get(context.Background(), "/gifts")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var gifts []map[string]string
	require.NoError(t, resp.Decode(&gifts))
	assert.Equal(t, "Mug", gifts[0]["name"])
	assert.Empty(t, sleeps.delays)
}

func TestClient_PostSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Alice", body["name"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	resp, err := client.Post(context.Background(), "recipients", map[string]string{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_ServerErrorRetriedWithBackoff(t *testing.T) {
	var calls atomic.Int32
	requestIDs := make(chan string, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		requestIDs <- r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	client, sleeps := newTestClient(t, server.URL, WithReporter(reporter))

	_, err := client.Get(context.Background(), "/gifts")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServer)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindServer, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, DefaultMaxRetries+1, appErr.Details["attempts"])

	assert.Equal(t, int32(DefaultMaxRetries+1), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps.delays)

	close(requestIDs)
	var first string
	for id := range requestIDs {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
	}

	assert.Equal(t, 1, reporter.count())
}

func TestClient_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	client, sleeps := newTestClient(t, server.URL, WithReporter(reporter))

	_, err := client.Get(context.Background(), "/gifts")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, sleeps.delays, 2)
	assert.Zero(t, reporter.count())
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   apperrors.Kind
		target error
	}{
		{"not found", http.StatusNotFound, apperrors.KindNotFound, apperrors.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, apperrors.KindAuth, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, apperrors.KindPermission, apperrors.ErrForbidden},
		{"bad request", http.StatusBadRequest, apperrors.KindValidation, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, sleeps := newTestClient(t, server.URL)

			_, err := client.Get(context.Background(), "/x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, sleeps.delays)
		})
	}
}

func TestClient_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	_, err := client.Get(context.Background(), "/x")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Equal(t, int32(DefaultMaxRetries+1), calls.Load())
}

func TestClient_JSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"name is required","code":"missing_name"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	_, err := client.Post(context.Background(), "/recipients", map[string]string{})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "name is required", appErr.Message)
	assert.Equal(t, "missing_name", appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
}

func TestClient_NonJSONErrorBodyUsesStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html>nope</html>`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	_, err := client.Get(context.Background(), "/missing")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusText(http.StatusNotFound), appErr.Message)
	assert.Empty(t, appErr.Code)
}

func TestClient_AttemptTimeoutRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 1

	sleeps := &recordedSleeps{}
	client, err := New(cfg, WithSleep(sleeps.sleep))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, sleeps.delays, 1)
}

func TestClient_NetworkErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, sleeps := newTestClient(t, url)

	_, err := client.Get(context.Background(), "/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.Len(t, sleeps.delays, DefaultMaxRetries)
}

func TestClient_CancelledDuringBackoffStops(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig(server.URL)
	client, err := New(cfg, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	require.NoError(t, err)

	_, err = client.Get(ctx, "/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrServer)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_AuthToken(t *testing.T) {
	headers := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	client.SetAuthToken("abc")
	_, err := client.Get(context.Background(), "/me")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", <-headers)

	client.ClearAuthToken()
	_, err = client.Get(context.Background(), "/me")
	require.NoError(t, err)
	assert.Empty(t, <-headers)
	assert.NotContains(t, client.Headers(), "Authorization")
}

func TestClient_DefaultAndPerRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ribbon", r.Header.Get("X-Client"))
		assert.Equal(t, "override", r.Header.Get("X-Trace"))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.DefaultHeaders = map[string]string{"X-Client": "ribbon", "X-Trace": "default"}
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/x", WithHeader("X-Trace", "override"))
	require.NoError(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, true},
		{"non http base url", func(c *Config) { c.BaseURL = "ftp://example.com" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"max delay below base", func(c *Config) { c.MaxRetryDelay = time.Millisecond }, true},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("https://api.example.com")
			tt.mutate(&cfg)

			_, err := New(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

type countingMetrics struct {
	mu         sync.Mutex
	operations map[string]int
	retries    int
}

func (m *countingMetrics) RecordOperation(_ context.Context, domain, operation, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[domain+"/"+operation+"/"+status]++
}

func (m *countingMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (m *countingMetrics) RecordRetry(_ context.Context, domain, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func TestClient_RecordsMetrics(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := &countingMetrics{operations: map[string]int{}}
	client, _ := newTestClient(t, server.URL, WithMetrics(m))

	_, err := client.Get(context.Background(), "/gifts")
	require.NoError(t, err)

	assert.Equal(t, 1, m.operations["http/request_get/success"])
	assert.Equal(t, 1, m.retries)
}
