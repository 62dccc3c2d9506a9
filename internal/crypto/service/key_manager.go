package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// SecretKeyName is the secure store entry holding the base64 secret key.
const SecretKeyName = "ribbon_encryption_key"

// KeyManagerService implements the KeyManager interface on top of a SecureStore.
//
// The key is read from the store on every call; the store is the single source of
// truth. A mutex makes concurrent first use create exactly one key and serializes
// rotation and deletion against creation.
type KeyManagerService struct {
	store  SecureStore
	random io.Reader
	mu     sync.Mutex
}

// NewKeyManager creates a new KeyManagerService backed by store. A nil store makes
// every operation fail with ErrSecureStoreUnavailable.
func NewKeyManager(store SecureStore) *KeyManagerService {
	return &KeyManagerService{
		store:  store,
		random: rand.Reader,
	}
}

// GetOrCreateKey returns the stored 32-byte key, generating and persisting one first
// when the store has none.
func (km *KeyManagerService) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	if km.store == nil {
		return nil, cryptoDomain.ErrSecureStoreUnavailable
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	encoded, err := km.store.Get(ctx, SecretKeyName)
	switch {
	case err == nil:
		return decodeKey(encoded)
	case apperrors.Is(err, apperrors.ErrNotFound):
		return km.generateAndStore(ctx)
	default:
		return nil, fmt.Errorf("failed to read secret key: %w", err)
	}
}

// RotateKey stores a brand-new key, discarding the previous one.
func (km *KeyManagerService) RotateKey(ctx context.Context) error {
	if km.store == nil {
		return cryptoDomain.ErrSecureStoreUnavailable
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	key, err := km.generateAndStore(ctx)
	if err != nil {
		return err
	}
	cryptoDomain.Zero(key)
	return nil
}

// RestoreKey replaces the stored key with key. The key must be KeySize bytes.
func (km *KeyManagerService) RestoreKey(ctx context.Context, key []byte) error {
	if km.store == nil {
		return cryptoDomain.ErrSecureStoreUnavailable
	}
	if len(key) != cryptoDomain.KeySize {
		return cryptoDomain.ErrInvalidKeySize
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	encoded := []byte(cryptoDomain.EncodeBase64(key))
	defer cryptoDomain.Zero(encoded)

	if err := km.store.Put(ctx, SecretKeyName, encoded); err != nil {
		return fmt.Errorf("failed to restore secret key: %w", err)
	}
	return nil
}

// DeleteKey removes the stored key.
func (km *KeyManagerService) DeleteKey(ctx context.Context) error {
	if km.store == nil {
		return cryptoDomain.ErrSecureStoreUnavailable
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.store.Delete(ctx, SecretKeyName); err != nil {
		return fmt.Errorf("failed to delete secret key: %w", err)
	}
	return nil
}

// generateAndStore must be called with km.mu held.
func (km *KeyManagerService) generateAndStore(ctx context.Context) ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(km.random, key); err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}

	encoded := []byte(cryptoDomain.EncodeBase64(key))
	defer cryptoDomain.Zero(encoded)

	if err := km.store.Put(ctx, SecretKeyName, encoded); err != nil {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("failed to store secret key: %w", err)
	}
	return key, nil
}

func decodeKey(encoded []byte) ([]byte, error) {
	defer cryptoDomain.Zero(encoded)

	key, err := cryptoDomain.DecodeBase64(string(encoded))
	if err != nil {
		return nil, err
	}
	if len(key) != cryptoDomain.KeySize {
		cryptoDomain.Zero(key)
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return key, nil
}
