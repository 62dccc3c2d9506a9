package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// migration is one idempotent schema step. Steps may run again after a partial
// failure, so each must leave already-migrated data untouched.
type migration struct {
	name string
	run  func(ctx context.Context) error
}

func (s *storageService) defaultMigrations() []migration {
	return []migration{
		{name: "encrypt-sensitive-plaintext", run: s.encryptSensitivePlaintext},
		{name: "drop-deprecated-keys", run: s.dropDeprecatedKeys},
	}
}

// migrate runs every step when the persisted marker differs from SchemaVersion.
func (s *storageService) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readMarker(ctx)
	if err != nil {
		return err
	}
	if current == storageDomain.SchemaVersion {
		return nil
	}

	s.logger.Info("migrating storage",
		slog.String("from", current),
		slog.String("to", storageDomain.SchemaVersion),
	)

	for _, m := range s.migrations {
		if err := m.run(ctx); err != nil {
			wrapped := fmt.Errorf("%w: %s: %w", storageDomain.ErrMigrationFailed, m.name, err)
			s.report(ctx, wrapped, "migrate", "")
			return wrapped
		}
		s.logger.Debug("storage migration applied", slog.String("migration", m.name))
	}

	if err := s.writeMarker(ctx); err != nil {
		return err
	}

	s.logger.Info("storage migrated", slog.String("version", storageDomain.SchemaVersion))
	return nil
}

// readMarker returns the persisted schema version, or "" when none is stored.
func (s *storageService) readMarker(ctx context.Context) (string, error) {
	stored, ok, err := s.kv.Get(ctx, storageDomain.KeyStorageVersion)
	if err != nil {
		return "", s.storageError(ctx, "read_marker", storageDomain.KeyStorageVersion, err)
	}
	if !ok {
		return "", nil
	}

	var version string
	if err := json.Unmarshal(stored, &version); err != nil {
		// Markers written as bare strings by earlier schemas.
		return string(stored), nil
	}
	return version, nil
}

// writeMarker must be called with s.mu held.
func (s *storageService) writeMarker(ctx context.Context) error {
	raw, err := json.Marshal(storageDomain.SchemaVersion)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode schema marker")
	}
	if err := s.kv.Set(ctx, storageDomain.KeyStorageVersion, raw); err != nil {
		return s.storageError(ctx, "write_marker", storageDomain.KeyStorageVersion, err)
	}
	return nil
}

// encryptSensitivePlaintext re-stores sensitive values that are plaintext or
// legacy envelopes under the current scheme.
func (s *storageService) encryptSensitivePlaintext(ctx context.Context) error {
	stored, err := s.kv.GetMany(ctx, s.classifier.SensitiveKeys())
	if err != nil {
		return apperrors.NewStorageError("migrate", err)
	}

	upgraded := 0
	for key, value := range stored {
		result, err := s.codec.DecryptValue(ctx, key, value)
		if err != nil {
			return err
		}
		if !result.NeedsUpgrade() {
			continue
		}
		if !json.Valid(result.Value) {
			s.logger.Warn("skipping corrupt value during migration", slog.String("key", key))
			continue
		}

		encrypted, err := s.codec.EncryptValue(ctx, key, result.Value)
		if err != nil {
			return err
		}
		if err := s.kv.Set(ctx, key, encrypted); err != nil {
			return apperrors.NewStorageError("migrate", err).WithDetail("key", key)
		}
		upgraded++
	}

	s.logger.Debug("sensitive values encrypted", slog.Int("count", upgraded))
	return nil
}

func (s *storageService) dropDeprecatedKeys(ctx context.Context) error {
	if err := s.kv.Delete(ctx, storageDomain.DeprecatedKeys...); err != nil {
		return apperrors.NewStorageError("migrate", err)
	}
	return nil
}
