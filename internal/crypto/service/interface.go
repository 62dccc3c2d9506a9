// Package service provides the cryptographic services of the encrypted storage layer:
// the keystream cipher and AEAD ciphers behind a common Cipher interface, the
// per-install key manager and the secure stores that hold the key.
package service

import (
	"context"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

// Cipher encrypts and decrypts values under a key fixed at construction.
type Cipher interface {
	// Encrypt encrypts plaintext with a freshly generated IV and returns both.
	Encrypt(plaintext []byte) (ciphertext, iv []byte, err error)

	// Decrypt decrypts ciphertext using the IV produced by Encrypt.
	Decrypt(ciphertext, iv []byte) ([]byte, error)
}

// CipherManager creates the cipher that reads and writes a given envelope version.
type CipherManager interface {
	// CreateCipher creates a cipher instance for the specified version.
	CreateCipher(key []byte, version cryptoDomain.Version) (Cipher, error)
}

// KeyManager manages the per-install secret key.
type KeyManager interface {
	// GetOrCreateKey returns the stored key, generating and persisting one on first use.
	GetOrCreateKey(ctx context.Context) ([]byte, error)

	// RotateKey unconditionally replaces the stored key with a new random key.
	// Data encrypted under the previous key must be re-encrypted by the caller first.
	RotateKey(ctx context.Context) error

	// RestoreKey stores key as the current key again. It undoes a RotateKey whose
	// re-encrypted data could not be persisted.
	RestoreKey(ctx context.Context, key []byte) error

	// DeleteKey removes the stored key.
	DeleteKey(ctx context.Context) error
}

// SecureStore is a small confidential key-value store for key material.
type SecureStore interface {
	// Get returns the value stored under name or an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put stores value under name, replacing any previous value.
	Put(ctx context.Context, name string, value []byte) error

	// Delete removes name. Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error
}

// Keeper seals and opens secure-store entries. *secrets.Keeper implements it.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
