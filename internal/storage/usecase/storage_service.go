package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	cryptoUsecase "github.com/ribbonapp/ribbon-core/internal/crypto/usecase"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// storageService implements StorageService.
//
// Reads and writes hold mu for reading; key rotation holds it for writing so no
// value is read or written while sensitive entries are being re-encrypted.
type storageService struct {
	kv         KVStore
	codec      cryptoUsecase.ValueCodec
	classifier Classifier
	reporter   ErrorReporter
	logger     *slog.Logger
	transactor Transactor
	migrations []migration

	state atomic.Int32
	init  singleflight.Group
	mu    sync.RWMutex
}

// Option configures a StorageService.
type Option func(*storageService)

// WithTransactor runs key rotation and Clear inside one transaction of t. Use it
// with the SQL backends, whose stores join the transaction carried by the context.
func WithTransactor(t Transactor) Option {
	return func(s *storageService) {
		s.transactor = t
	}
}

// NewStorageService creates a StorageService. reporter may be nil.
func NewStorageService(
	kv KVStore,
	codec cryptoUsecase.ValueCodec,
	classifier Classifier,
	reporter ErrorReporter,
	logger *slog.Logger,
	opts ...Option,
) StorageService {
	s := &storageService{
		kv:         kv,
		codec:      codec,
		classifier: classifier,
		reporter:   reporter,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.migrations = s.defaultMigrations()
	return s
}

// withTx runs fn in a transaction when a transactor is configured.
func (s *storageService) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.transactor == nil {
		return fn(ctx)
	}
	return s.transactor.WithTx(ctx, fn)
}

// State returns the lifecycle state.
func (s *storageService) State() storageDomain.State {
	return storageDomain.State(s.state.Load())
}

// Initialize runs the schema migrations once. Migrations run detached from the
// caller's cancellation because concurrent callers share their result.
func (s *storageService) Initialize(ctx context.Context) error {
	if s.State() == storageDomain.StateReady {
		return nil
	}

	_, err, _ := s.init.Do("initialize", func() (any, error) {
		if s.State() == storageDomain.StateReady {
			return nil, nil
		}

		s.state.Store(int32(storageDomain.StateMigrating))
		if err := s.migrate(context.WithoutCancel(ctx)); err != nil {
			s.state.Store(int32(storageDomain.StateUninitialized))
			return nil, err
		}
		s.state.Store(int32(storageDomain.StateReady))
		return nil, nil
	})
	return err
}

// GetRaw returns the decoded JSON stored under key.
func (s *storageService) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, s.storageError(ctx, "get", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	raw, err := s.decode(ctx, key, stored)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// SetRaw stores the JSON document raw under key.
func (s *storageService) SetRaw(ctx context.Context, key string, raw []byte) error {
	if !json.Valid(raw) {
		err := apperrors.NewValidationError("value is not valid JSON", nil).WithDetail("key", key)
		s.report(ctx, err, "set", key)
		return err
	}

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.write(ctx, key, raw)
}

// GetValue decodes the value under key into dst.
func (s *storageService) GetValue(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		parseErr := apperrors.NewStorageParseError(key, err)
		s.report(ctx, parseErr, "get", key)
		return false, parseErr
	}
	return true, nil
}

// SetValue encodes value as JSON and stores it under key.
func (s *storageService) SetValue(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		validationErr := apperrors.NewValidationError("value cannot be encoded as JSON", err).
			WithDetail("key", key)
		s.report(ctx, validationErr, "set", key)
		return validationErr
	}
	return s.SetRaw(ctx, key, raw)
}

// Remove deletes key.
func (s *storageService) Remove(ctx context.Context, key string) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.kv.Delete(ctx, key); err != nil {
		return s.storageError(ctx, "remove", key, err)
	}
	return nil
}

// GetMany returns the decoded JSON of the keys that exist.
func (s *storageService) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return nil, s.storageError(ctx, "get_many", "", err)
	}

	out := make(map[string][]byte, len(stored))
	for key, value := range stored {
		raw, err := s.decode(ctx, key, value)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	return out, nil
}

// Clear removes every declared and deprecated key and rewrites the schema marker.
func (s *storageService) Clear(ctx context.Context) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := append(s.classifier.DeclaredKeys(), storageDomain.DeprecatedKeys...)
	err := s.withTx(ctx, func(ctx context.Context) error {
		if err := s.kv.Delete(ctx, keys...); err != nil {
			return s.storageError(ctx, "clear", "", err)
		}
		return s.writeMarker(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("storage cleared", slog.Int("keys", len(keys)))
	return nil
}

// GetAllKeys returns the declared keys present in the backend.
func (s *storageService) GetAllKeys(ctx context.Context) ([]string, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "get_all_keys", "", err)
	}

	declared := make([]string, 0, len(keys))
	for _, key := range keys {
		if s.classifier.IsDeclared(key) {
			declared = append(declared, key)
		}
	}
	slices.Sort(declared)
	return declared, nil
}

// RotateEncryptionKey re-encrypts every sensitive value under a new key.
func (s *storageService) RotateEncryptionKey(ctx context.Context) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.kv.GetMany(ctx, s.classifier.SensitiveKeys())
	if err != nil {
		return s.storageError(ctx, "rotate", "", err)
	}

	reencrypted := 0
	err = s.codec.Rotate(ctx, stored, func(ctx context.Context, rotated map[string][]byte) error {
		reencrypted = len(rotated)
		return s.persistRotated(ctx, stored, rotated)
	})
	if err != nil {
		return err
	}

	s.logger.Info("encryption key rotated", slog.Int("reencrypted", reencrypted))
	return nil
}

// persistRotated writes re-encrypted values in one transaction when a Transactor is
// configured. Without one, values already written are put back to their previous
// envelopes on failure, so the backend stays consistent with the restored key.
func (s *storageService) persistRotated(ctx context.Context, previous, rotated map[string][]byte) error {
	written := make([]string, 0, len(rotated))
	err := s.withTx(ctx, func(ctx context.Context) error {
		for key, value := range rotated {
			if err := s.kv.Set(ctx, key, value); err != nil {
				return s.storageError(ctx, "rotate", key, err)
			}
			written = append(written, key)
		}
		return nil
	})
	if err == nil || s.transactor != nil {
		return err
	}

	for _, key := range written {
		if rbErr := s.kv.Set(ctx, key, previous[key]); rbErr != nil {
			s.report(ctx, apperrors.NewStorageError("rotate_rollback", rbErr).WithDetail("key", key), "rotate", key)
		}
	}
	return err
}

// decode opens a stored value and upgrades legacy envelopes in place. Must be
// called with s.mu held.
func (s *storageService) decode(ctx context.Context, key string, stored []byte) ([]byte, error) {
	result, err := s.codec.DecryptValue(ctx, key, stored)
	if err != nil {
		return nil, err
	}

	if result.Legacy {
		s.upgrade(ctx, key, result.Value)
	}

	if !json.Valid(result.Value) {
		parseErr := apperrors.NewStorageParseError(key, apperrors.New("invalid JSON"))
		s.report(ctx, parseErr, "get", key)
		return nil, parseErr
	}
	return result.Value, nil
}

// upgrade re-stores a legacy value under the current scheme. Failures are reported
// and otherwise ignored; the read that found the value still succeeds.
func (s *storageService) upgrade(ctx context.Context, key string, raw []byte) {
	stored, err := s.codec.EncryptValue(ctx, key, raw)
	if err != nil {
		s.report(ctx, err, "upgrade", key)
		return
	}
	if bytes.Equal(stored, raw) {
		return
	}
	if err := s.kv.Set(ctx, key, stored); err != nil {
		s.report(ctx, apperrors.NewStorageError("upgrade", err).WithDetail("key", key), "upgrade", key)
		return
	}
	s.logger.Debug("legacy value re-encrypted", slog.String("key", key))
}

// write must be called with s.mu held.
func (s *storageService) write(ctx context.Context, key string, raw []byte) error {
	stored, err := s.codec.EncryptValue(ctx, key, raw)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, stored); err != nil {
		return s.storageError(ctx, "set", key, err)
	}
	return nil
}

func (s *storageService) storageError(ctx context.Context, operation, key string, cause error) error {
	err := apperrors.NewStorageError(operation, cause)
	if key != "" {
		err = err.WithDetail("key", key)
	}
	s.report(ctx, err, operation, key)
	return err
}

func (s *storageService) report(ctx context.Context, err error, operation, key string) {
	if s.reporter == nil {
		return
	}
	details := map[string]any{
		"component": "storage",
		"operation": operation,
	}
	if key != "" {
		details["key"] = key
	}
	s.reporter.Log(ctx, err, details)
}
