// Package usecase implements the storage service: a schema-versioned key-value
// store that migrates on first use and routes sensitive keys through the value
// codec transparently.
package usecase

import (
	"context"

	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// KVStore is the platform key-value backend. Values are opaque to it.
//
// Available implementations:
//   - MemoryKVStore
//   - FileKVStore: one JSON file, atomic rename on every write
//   - RedisKVStore: fields of one Redis hash
//   - PostgreSQLKVStore, MySQLKVStore: the kv_entries table
type KVStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMany returns the values of the keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns every stored key.
	Keys(ctx context.Context) ([]string, error)
}

// Classifier is the key table consulted by the service.
type Classifier interface {
	IsSensitive(key string) bool
	IsDeclared(key string) bool
	DeclaredKeys() []string
	SensitiveKeys() []string
}

// ErrorReporter records every failure the service observes.
type ErrorReporter interface {
	Log(ctx context.Context, err error, details map[string]any)
}

// Transactor runs fn in a transaction carried by the context passed to it.
// database.TxManager implements it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StorageService is the versioned, encrypting key-value store used by the domain
// services. Every operation initializes the service first if needed.
//
// Values cross this interface as JSON. Backend failures surface as errors wrapping
// errors.ErrStorage; values that are not valid JSON after decoding surface as
// errors wrapping errors.ErrStorageParse. Missing keys are not errors.
type StorageService interface {
	// Initialize compares the persisted schema marker with the current schema and
	// runs the migrations on mismatch. Concurrent callers share one run; a failed
	// run leaves the service uninitialized so the next call retries.
	Initialize(ctx context.Context) error

	// GetRaw returns the decoded JSON stored under key.
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)

	// SetRaw stores the JSON document raw under key.
	SetRaw(ctx context.Context, key string, raw []byte) error

	// GetValue decodes the value under key into dst. It reports false when the key
	// is absent and leaves dst untouched.
	GetValue(ctx context.Context, key string, dst any) (bool, error)

	// SetValue encodes value as JSON and stores it under key.
	SetValue(ctx context.Context, key string, value any) error

	// Remove deletes key.
	Remove(ctx context.Context, key string) error

	// GetMany returns the decoded JSON of the keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// Clear removes every declared key and rewrites the schema marker.
	Clear(ctx context.Context) error

	// GetAllKeys returns the declared keys present in the backend.
	GetAllKeys(ctx context.Context) ([]string, error)

	// RotateEncryptionKey replaces the secret key and re-encrypts every sensitive
	// value under it. Reads and writes wait for the rotation to finish.
	RotateEncryptionKey(ctx context.Context) error

	// State returns the lifecycle state.
	State() storageDomain.State
}
