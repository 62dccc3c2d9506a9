package app

import (
	"fmt"

	"github.com/ribbonapp/ribbon-core/internal/http"
	recipientUsecase "github.com/ribbonapp/ribbon-core/internal/recipient/usecase"
	sessionUsecase "github.com/ribbonapp/ribbon-core/internal/session/usecase"
)

// RecipientUseCase returns the recipient use case.
func (c *Container) RecipientUseCase() (recipientUsecase.RecipientUseCase, error) {
	var err error
	c.recipientUseCaseInit.Do(func() {
		c.recipientUseCase, err = c.initRecipientUseCase()
		if err != nil {
			c.setInitError("recipientUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("recipientUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.recipientUseCase, nil
}

// SessionUseCase returns the session use case.
func (c *Container) SessionUseCase() (sessionUsecase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.setInitError("sessionUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("sessionUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// DiagnosticsServer returns the diagnostics HTTP server with its routes set up.
func (c *Container) DiagnosticsServer() (*http.Server, error) {
	var err error
	c.diagnosticsServerInit.Do(func() {
		c.diagnosticsServer, err = c.initDiagnosticsServer()
		if err != nil {
			c.setInitError("diagnosticsServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("diagnosticsServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.diagnosticsServer, nil
}

func (c *Container) initRecipientUseCase() (recipientUsecase.RecipientUseCase, error) {
	storage, err := c.StorageService()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage service for recipient use case: %w", err)
	}
	return recipientUsecase.NewRecipientUseCase(storage, c.Logger()), nil
}

func (c *Container) initSessionUseCase() (sessionUsecase.SessionUseCase, error) {
	storage, err := c.StorageService()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage service for session use case: %w", err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client for session use case: %w", err)
	}
	return sessionUsecase.NewSessionUseCase(storage, client, sessionUsecase.DefaultAuthEndpoint, c.Logger()), nil
}

func (c *Container) initDiagnosticsServer() (*http.Server, error) {
	storage, err := c.StorageService()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage service for diagnostics server: %w", err)
	}
	errorLogger, err := c.ErrorLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get error logger for diagnostics server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for diagnostics server: %w", err)
	}

	server := http.NewServer(storage, errorLogger, c.config.MetricsHost, c.config.MetricsPort, c.Logger())
	server.SetupRouter(provider, c.config.MetricsNamespace)
	return server, nil
}
