package commands

import (
	"context"
	"fmt"
	"log/slog"
)

// KeyRotator re-encrypts every sensitive value under a new key.
type KeyRotator interface {
	RotateEncryptionKey(ctx context.Context) error
}

// KeyDeleter removes the stored encryption key.
type KeyDeleter interface {
	DeleteKey(ctx context.Context) error
}

// RunRotateKey replaces the per-install key and re-encrypts every sensitive value.
// The rotation aborts without changes if any stored value cannot be decrypted.
func RunRotateKey(ctx context.Context, rotator KeyRotator, logger *slog.Logger) error {
	logger.Info("rotating encryption key")

	if err := rotator.RotateEncryptionKey(ctx); err != nil {
		return fmt.Errorf("failed to rotate encryption key: %w", err)
	}

	logger.Info("encryption key rotated successfully")
	return nil
}

// RunDeleteKey removes the per-install key. Values encrypted under it become
// unreadable, so the command requires confirmation.
func RunDeleteKey(ctx context.Context, deleter KeyDeleter, logger *slog.Logger, force bool) error {
	if !force {
		return fmt.Errorf("refusing to delete the encryption key without --force")
	}

	if err := deleter.DeleteKey(ctx); err != nil {
		return fmt.Errorf("failed to delete encryption key: %w", err)
	}

	logger.Warn("encryption key deleted; previously encrypted values are no longer readable")
	return nil
}
