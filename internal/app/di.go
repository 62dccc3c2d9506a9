// Package app provides the dependency injection container that assembles the
// storage, crypto, HTTP client and error logging components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ribbonapp/ribbon-core/internal/config"
	cryptoService "github.com/ribbonapp/ribbon-core/internal/crypto/service"
	cryptoUsecase "github.com/ribbonapp/ribbon-core/internal/crypto/usecase"
	"github.com/ribbonapp/ribbon-core/internal/database"
	"github.com/ribbonapp/ribbon-core/internal/errorlog"
	"github.com/ribbonapp/ribbon-core/internal/http"
	"github.com/ribbonapp/ribbon-core/internal/httpclient"
	"github.com/ribbonapp/ribbon-core/internal/metrics"
	recipientUsecase "github.com/ribbonapp/ribbon-core/internal/recipient/usecase"
	sessionUsecase "github.com/ribbonapp/ribbon-core/internal/session/usecase"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
	storageUsecase "github.com/ribbonapp/ribbon-core/internal/storage/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	errorLogger     *errorlog.Logger
	httpClient      *httpclient.Client

	// Crypto
	kmsService    cryptoService.KMSService
	secureStore   cryptoService.SecureStore
	keyManager    cryptoService.KeyManager
	cipherManager cryptoService.CipherManager
	valueCodec    cryptoUsecase.ValueCodec

	// Storage
	classifier     *storageDomain.SensitivityMap
	kvStore        storageUsecase.KVStore
	storageService storageUsecase.StorageService

	// Use cases
	recipientUseCase recipientUsecase.RecipientUseCase
	sessionUseCase   sessionUsecase.SessionUseCase

	// Servers
	diagnosticsServer *http.Server

	// closers are released in reverse order by Shutdown.
	closers []namedCloser

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	errorLoggerInit       sync.Once
	httpClientInit        sync.Once
	kmsServiceInit        sync.Once
	secureStoreInit       sync.Once
	keyManagerInit        sync.Once
	cipherManagerInit     sync.Once
	valueCodecInit        sync.Once
	classifierInit        sync.Once
	kvStoreInit           sync.Once
	storageServiceInit    sync.Once
	recipientUseCaseInit  sync.Once
	sessionUseCaseInit    sync.Once
	diagnosticsServerInit sync.Once
	initErrors            map[string]error
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured logger configured from LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection used by the SQL storage backends.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.setInitError("db", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("db"); storedErr != nil {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.setInitError("metricsProvider", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("metricsProvider"); storedErr != nil {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation metrics recorder. It is a no-op recorder
// when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.setInitError("businessMetrics", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("businessMetrics"); storedErr != nil {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// ErrorLogger returns the error logger every component reports to.
func (c *Container) ErrorLogger() (*errorlog.Logger, error) {
	var err error
	c.errorLoggerInit.Do(func() {
		c.errorLogger, err = c.initErrorLogger()
		if err != nil {
			c.setInitError("errorLogger", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("errorLogger"); storedErr != nil {
		return nil, storedErr
	}
	return c.errorLogger, nil
}

// HTTPClient returns the retrying API client.
func (c *Container) HTTPClient() (*httpclient.Client, error) {
	var err error
	c.httpClientInit.Do(func() {
		c.httpClient, err = c.initHTTPClient()
		if err != nil {
			c.setInitError("httpClient", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("httpClient"); storedErr != nil {
		return nil, storedErr
	}
	return c.httpClient, nil
}

// Shutdown stops the background flusher and the diagnostics server, then releases
// every opened resource.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.diagnosticsServer != nil {
		if err := c.diagnosticsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("diagnostics server shutdown: %w", err))
		}
	}

	if c.errorLogger != nil {
		if err := c.errorLogger.Stop(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("error logger stop: %w", err))
		} else if err := c.errorLogger.Flush(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("error logger flush: %w", err))
		}
	}

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].closer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("%s close: %w", c.closers[i].name, err))
		}
	}
	c.closers = nil

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

func (c *Container) setInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

func (c *Container) addCloser(name string, closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, namedCloser{name: name, closer: closer})
}

// initLogger creates a JSON logger on stderr, keeping stdout for command output.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DatabaseDriver(),
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.addCloser("database", db)
	return db, nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return bm, nil
}

// initErrorLogger wires the batch reporter through a dedicated client that does
// not report back into the logger, so delivery failures cannot feed the queue.
func (c *Container) initErrorLogger() (*errorlog.Logger, error) {
	opts := errorlog.Options{
		Capacity:  c.config.ErrorBufferSize,
		BatchSize: c.config.ErrorReportBatchSize,
		Interval:  c.config.ErrorReportInterval,
	}

	if c.config.ErrorReportEnabled {
		reportClient, err := httpclient.New(c.httpClientConfig(), httpclient.WithLogger(c.Logger()))
		if err != nil {
			return nil, fmt.Errorf("failed to create error report client: %w", err)
		}
		opts.Reporter = errorlog.NewHTTPReporter(reportClient, c.config.ErrorReportEndpoint)
	}

	return errorlog.New(opts, c.Logger()), nil
}

func (c *Container) httpClientConfig() httpclient.Config {
	cfg := httpclient.DefaultConfig(c.config.APIBaseURL)
	cfg.Timeout = c.config.APITimeout
	cfg.MaxRetries = c.config.APIMaxRetries
	cfg.RetryBaseDelay = c.config.APIRetryBaseDelay
	cfg.MaxRetryDelay = max(httpclient.DefaultMaxRetryDelay, c.config.APIRetryBaseDelay)
	cfg.RequestsPerSecond = c.config.APIRequestsPerSec
	return cfg
}

func (c *Container) initHTTPClient() (*httpclient.Client, error) {
	errorLogger, err := c.ErrorLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get error logger for http client: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for http client: %w", err)
	}

	client, err := httpclient.New(c.httpClientConfig(),
		httpclient.WithLogger(c.Logger()),
		httpclient.WithReporter(errorLogger),
		httpclient.WithMetrics(bm),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return client, nil
}
