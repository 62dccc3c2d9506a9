package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DiagnosticsServer serves the health, readiness, metrics and debug endpoints.
type DiagnosticsServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ErrorFlusher delivers logged errors in the background.
type ErrorFlusher interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// Initializer prepares the storage before the server reports ready.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// RunDiagnostics initializes the storage, starts the error flusher and serves the
// diagnostics endpoints until SIGINT/SIGTERM, ctx cancellation or a server error.
// Shutdown is bounded by shutdownTimeout.
func RunDiagnostics(
	ctx context.Context,
	storage Initializer,
	server DiagnosticsServer,
	flusher ErrorFlusher,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A failed initialization is reported by /ready and retried on the next access.
	if err := storage.Initialize(ctx); err != nil {
		logger.Error("storage initialization failed", slog.Any("error", err))
	}

	flusher.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("diagnostics server error: %w", err)
		}
	}()

	var shutdownErrors []error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("diagnostics server shutdown: %w", err))
	}
	if err := flusher.Stop(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("error flusher stop: %w", err))
	}

	return errors.Join(shutdownErrors...)
}
