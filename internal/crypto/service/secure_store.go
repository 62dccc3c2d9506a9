package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

var secureNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// MemorySecureStore is the in-process fallback used when no sealed store is available.
// Its contents do not survive a restart.
type MemorySecureStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemorySecureStore creates an empty in-memory secure store.
func NewMemorySecureStore() *MemorySecureStore {
	return &MemorySecureStore{entries: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemorySecureStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of value.
func (m *MemorySecureStore) Put(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.entries[name] = v
	return nil
}

// Delete removes name and zeroes the stored bytes.
func (m *MemorySecureStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cryptoDomain.Zero(m.entries[name])
	delete(m.entries, name)
	return nil
}

// KeeperSecureStore keeps each entry in its own 0600 file under a directory, sealed
// with a KMS keeper. With a cloud KMS the key never exists unencrypted on disk.
type KeeperSecureStore struct {
	dir    string
	keeper Keeper
	mu     sync.Mutex
}

// NewKeeperSecureStore creates a sealed store rooted at dir.
func NewKeeperSecureStore(dir string, keeper Keeper) *KeeperSecureStore {
	return &KeeperSecureStore{dir: dir, keeper: keeper}
}

// OpenKeeperSecureStore opens the keeper for keyURI and returns a store rooted at dir.
func OpenKeeperSecureStore(
	ctx context.Context,
	kms KMSService,
	keyURI, dir string,
) (*KeeperSecureStore, error) {
	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	return NewKeeperSecureStore(dir, keeper), nil
}

func (k *KeeperSecureStore) path(name string) (string, error) {
	if !secureNamePattern.MatchString(name) {
		return "", apperrors.NewValidationError("invalid secure store entry name", nil).
			WithDetail("name", name)
	}
	return filepath.Join(k.dir, name+".sealed"), nil
}

// Get reads and opens the sealed entry.
func (k *KeeperSecureStore) Get(ctx context.Context, name string) ([]byte, error) {
	p, err := k.path(name)
	if err != nil {
		return nil, err
	}

	sealed, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStorageError("secure_get", err)
	}

	plaintext, err := k.keeper.Decrypt(ctx, sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// Put seals value and atomically replaces the entry file.
func (k *KeeperSecureStore) Put(ctx context.Context, name string, value []byte) error {
	p, err := k.path(name)
	if err != nil {
		return err
	}

	sealed, err := k.keeper.Encrypt(ctx, value)
	if err != nil {
		return fmt.Errorf("failed to seal secure store entry: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return apperrors.NewStorageError("secure_put", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return apperrors.NewStorageError("secure_put", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return apperrors.NewStorageError("secure_put", err)
	}
	return nil
}

// Delete removes the entry file.
func (k *KeeperSecureStore) Delete(_ context.Context, name string) error {
	p, err := k.path(name)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return apperrors.NewStorageError("secure_delete", err)
	}
	return nil
}

// Close releases the keeper.
func (k *KeeperSecureStore) Close() error {
	return k.keeper.Close()
}
