package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ribbonapp/ribbon-core/internal/config"
	"github.com/ribbonapp/ribbon-core/internal/metrics"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

func newTestConfig() *config.Config {
	return &config.Config{
		LogLevel:             "error",
		StorageBackend:       config.StorageBackendMemory,
		EncryptionVersion:    "2.0.0",
		APIBaseURL:           "http://127.0.0.1:1",
		APITimeout:           time.Second,
		APIMaxRetries:        0,
		APIRetryBaseDelay:    time.Millisecond,
		ErrorBufferSize:      100,
		ErrorReportBatchSize: 10,
		ErrorReportInterval:  time.Minute,
		MetricsNamespace:     "ribbon",
		MetricsHost:          "127.0.0.1",
		MetricsPort:          0,
	}
}

func localKeyURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func TestNewContainer(t *testing.T) {
	cfg := newTestConfig()
	container := NewContainer(cfg)

	require.NotNil(t, container)
	assert.Same(t, cfg, container.Config())
}

func TestContainerLogger(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "debug"})

	assert.Nil(t, container.logger)
	logger := container.Logger()
	require.NotNil(t, logger)
	assert.Same(t, logger, container.Logger())
}

func TestContainerLoggerDefaultLevel(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "invalid"})
	logger := container.Logger()

	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestContainerDBInitializationError(t *testing.T) {
	container := NewContainer(&config.Config{DBDriver: "invalid_driver"})

	_, err := container.DB()
	require.Error(t, err)

	_, err2 := container.DB()
	require.Error(t, err2)
}

func TestContainerStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	container := NewContainer(newTestConfig())
	defer func() { _ = container.Shutdown(ctx) }()

	storage, err := container.StorageService()
	require.NoError(t, err)
	require.NoError(t, storage.Initialize(ctx))
	assert.Equal(t, storageDomain.StateReady, storage.State())

	require.NoError(t, storage.SetValue(ctx, storageDomain.KeyAuthToken, "secret-token"))
	require.NoError(t, storage.SetValue(ctx, storageDomain.KeyTheme, "dark"))

	var token string
	found, err := storage.GetValue(ctx, storageDomain.KeyAuthToken, &token)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "secret-token", token)

	kv, err := container.KVStore()
	require.NoError(t, err)

	raw, ok, err := kv.Get(ctx, storageDomain.KeyAuthToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "secret-token")

	raw, ok, err = kv.Get(ctx, storageDomain.KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"dark"`, string(raw))

	again, err := container.StorageService()
	require.NoError(t, err)
	assert.Same(t, storage, again)
}

func TestContainerFileBackendWithKeeper(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := newTestConfig()
	cfg.StorageBackend = config.StorageBackendFile
	cfg.StorageFilePath = filepath.Join(dir, "storage.json")
	cfg.KMSKeyURI = localKeyURI(t)
	cfg.SecureStorePath = filepath.Join(dir, "keys")

	first := NewContainer(cfg)
	storage, err := first.StorageService()
	require.NoError(t, err)
	require.NoError(t, storage.SetValue(ctx, storageDomain.KeyRefreshToken, "refresh-me"))
	require.NoError(t, first.Shutdown(ctx))

	second := NewContainer(cfg)
	defer func() { _ = second.Shutdown(ctx) }()
	storage, err = second.StorageService()
	require.NoError(t, err)

	var token string
	found, err := storage.GetValue(ctx, storageDomain.KeyRefreshToken, &token)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "refresh-me", token)
}

func TestContainerSecureStore(t *testing.T) {
	t.Run("memory store without key uri", func(t *testing.T) {
		container := NewContainer(newTestConfig())

		store, err := container.SecureStore()
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("strict mode requires key uri", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.StrictMode = true
		container := NewContainer(cfg)

		_, err := container.SecureStore()
		require.ErrorIs(t, err, ErrSecureStoreRequired)

		_, err = container.StorageService()
		require.ErrorIs(t, err, ErrSecureStoreRequired)
	})
}

func TestContainerInvalidConfiguration(t *testing.T) {
	t.Run("unsupported backend", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.StorageBackend = "floppy"

		_, err := NewContainer(cfg).KVStore()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage backend")
	})

	t.Run("legacy version cannot be written", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.EncryptionVersion = "1.0.0"

		_, err := NewContainer(cfg).ValueCodec()
		require.Error(t, err)
	})

	t.Run("unknown version", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.EncryptionVersion = "9.9.9"

		_, err := NewContainer(cfg).ValueCodec()
		require.Error(t, err)
	})
}

func TestContainerBusinessMetrics(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		container := NewContainer(newTestConfig())

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		assert.Nil(t, provider)

		bm, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.IsType(t, metrics.NoOpBusinessMetrics{}, bm)
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.MetricsEnabled = true
		container := NewContainer(cfg)
		defer func() { _ = container.Shutdown(context.Background()) }()

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		require.NotNil(t, provider)

		bm, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.NotNil(t, bm)
	})
}

func TestContainerErrorLogger(t *testing.T) {
	ctx := context.Background()
	received := make(chan int, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Errors []json.RawMessage `json:"errors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- len(body.Errors)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.APIBaseURL = server.URL
	cfg.ErrorReportEnabled = true
	cfg.ErrorReportEndpoint = "/errors"
	container := NewContainer(cfg)

	errorLogger, err := container.ErrorLogger()
	require.NoError(t, err)

	errorLogger.Log(ctx, assert.AnError, map[string]any{"component": "test"})
	assert.Equal(t, 1, errorLogger.Pending())

	require.NoError(t, container.Shutdown(ctx))
	assert.Equal(t, 1, <-received)
	assert.Equal(t, 0, errorLogger.Pending())
}

func TestContainerDiagnosticsServer(t *testing.T) {
	ctx := context.Background()
	container := NewContainer(newTestConfig())

	server, err := container.DiagnosticsServer()
	require.NoError(t, err)

	storage, err := container.StorageService()
	require.NoError(t, err)
	require.NoError(t, storage.Initialize(ctx))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContainerUseCases(t *testing.T) {
	container := NewContainer(newTestConfig())

	recipients, err := container.RecipientUseCase()
	require.NoError(t, err)
	assert.NotNil(t, recipients)

	sessions, err := container.SessionUseCase()
	require.NoError(t, err)
	assert.NotNil(t, sessions)

	client, err := container.HTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestContainerShutdownWithoutInitialization(t *testing.T) {
	container := NewContainer(newTestConfig())
	assert.NoError(t, container.Shutdown(context.Background()))
}
