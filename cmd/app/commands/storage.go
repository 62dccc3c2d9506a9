package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// StorageOperations is the subset of the storage service used by the storage commands.
type StorageOperations interface {
	Initialize(ctx context.Context) error
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	SetRaw(ctx context.Context, key string, raw []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	GetAllKeys(ctx context.Context) ([]string, error)
	State() storageDomain.State
}

// RunStorageInit initializes the storage, migrating it to the current schema if needed.
func RunStorageInit(ctx context.Context, storage StorageOperations, logger *slog.Logger, writer io.Writer) error {
	if err := storage.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger.Info("storage initialized", slog.String("schema_version", storageDomain.SchemaVersion))
	_, err := fmt.Fprintf(writer, "Storage ready (schema %s)\n", storageDomain.SchemaVersion)
	return err
}

// RunStorageGet prints the decoded JSON stored under key. Sensitive values are
// printed in plaintext.
func RunStorageGet(ctx context.Context, storage StorageOperations, writer io.Writer, key string) error {
	if err := requireKey(key); err != nil {
		return err
	}

	raw, found, err := storage.GetRaw(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get %q: %w", key, err)
	}
	if !found {
		return fmt.Errorf("key %q not found", key)
	}

	_, err = fmt.Fprintln(writer, string(raw))
	return err
}

// RunStorageSet stores a JSON document under key.
func RunStorageSet(ctx context.Context, storage StorageOperations, logger *slog.Logger, key, value string) error {
	if err := requireKey(key); err != nil {
		return err
	}
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	if err := storage.SetRaw(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}

	logger.Info("value stored", slog.String("key", key))
	return nil
}

// RunStorageRemove deletes key.
func RunStorageRemove(ctx context.Context, storage StorageOperations, logger *slog.Logger, key string) error {
	if err := requireKey(key); err != nil {
		return err
	}

	if err := storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}

	logger.Info("value removed", slog.String("key", key))
	return nil
}

// RunStorageKeys lists the declared keys present in the backend.
func RunStorageKeys(ctx context.Context, storage StorageOperations, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keys, err := storage.GetAllKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{
			"keys":  keys,
			"total": len(keys),
		})
	}

	for _, key := range keys {
		if _, err := fmt.Fprintln(writer, key); err != nil {
			return err
		}
	}
	return nil
}

// RunStorageClear removes every declared key. It refuses to run without confirmation.
func RunStorageClear(ctx context.Context, storage StorageOperations, logger *slog.Logger, force bool) error {
	if !force {
		return fmt.Errorf("refusing to clear storage without --force")
	}

	if err := storage.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}

	logger.Info("storage cleared")
	return nil
}

func requireKey(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}
