package usecase

import (
	"context"
	"time"

	"github.com/ribbonapp/ribbon-core/internal/metrics"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// storageServiceWithMetrics decorates StorageService with metrics instrumentation.
type storageServiceWithMetrics struct {
	next    StorageService
	metrics metrics.BusinessMetrics
}

// NewStorageServiceWithMetrics wraps a StorageService with metrics recording.
func NewStorageServiceWithMetrics(service StorageService, m metrics.BusinessMetrics) StorageService {
	return &storageServiceWithMetrics{
		next:    service,
		metrics: m,
	}
}

func (s *storageServiceWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, s.metrics, metrics.DomainStorage, operation, start, err)
}

// Initialize records metrics for storage initialization.
func (s *storageServiceWithMetrics) Initialize(ctx context.Context) error {
	start := time.Now()
	err := s.next.Initialize(ctx)
	s.record(ctx, "storage_initialize", start, err)
	return err
}

// GetRaw records metrics for reads.
func (s *storageServiceWithMetrics) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	raw, ok, err := s.next.GetRaw(ctx, key)
	s.record(ctx, "storage_get", start, err)
	return raw, ok, err
}

// SetRaw records metrics for writes.
func (s *storageServiceWithMetrics) SetRaw(ctx context.Context, key string, raw []byte) error {
	start := time.Now()
	err := s.next.SetRaw(ctx, key, raw)
	s.record(ctx, "storage_set", start, err)
	return err
}

// GetValue records metrics for typed reads.
func (s *storageServiceWithMetrics) GetValue(ctx context.Context, key string, dst any) (bool, error) {
	start := time.Now()
	ok, err := s.next.GetValue(ctx, key, dst)
	s.record(ctx, "storage_get", start, err)
	return ok, err
}

// SetValue records metrics for typed writes.
func (s *storageServiceWithMetrics) SetValue(ctx context.Context, key string, value any) error {
	start := time.Now()
	err := s.next.SetValue(ctx, key, value)
	s.record(ctx, "storage_set", start, err)
	return err
}

// Remove records metrics for deletes.
func (s *storageServiceWithMetrics) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.record(ctx, "storage_remove", start, err)
	return err
}

// GetMany records metrics for batch reads.
func (s *storageServiceWithMetrics) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	values, err := s.next.GetMany(ctx, keys)
	s.record(ctx, "storage_get_many", start, err)
	return values, err
}

// Clear records metrics for clearing storage.
func (s *storageServiceWithMetrics) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.next.Clear(ctx)
	s.record(ctx, "storage_clear", start, err)
	return err
}

// GetAllKeys records metrics for key listing.
func (s *storageServiceWithMetrics) GetAllKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.next.GetAllKeys(ctx)
	s.record(ctx, "storage_keys", start, err)
	return keys, err
}

// RotateEncryptionKey records metrics for key rotation.
func (s *storageServiceWithMetrics) RotateEncryptionKey(ctx context.Context) error {
	start := time.Now()
	err := s.next.RotateEncryptionKey(ctx)
	s.record(ctx, "storage_rotate_key", start, err)
	return err
}

// State is not instrumented.
func (s *storageServiceWithMetrics) State() storageDomain.State {
	return s.next.State()
}
