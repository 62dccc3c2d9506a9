// Package usecase defines the encrypted value codec that sits between the storage
// service and the ciphers.
//
// The codec decides per logical key whether a value is encrypted, wraps ciphertext
// in a versioned envelope, recognizes envelopes on read and decodes legacy ones.
// Implementations coordinate the key manager for the per-install key and the cipher
// manager for the configured envelope version.
package usecase

import (
	"context"
)

// Classifier reports how a logical storage key must be treated.
type Classifier interface {
	// IsSensitive reports whether values under key must be encrypted.
	IsSensitive(key string) bool

	// IsDeclared reports whether key appears in the key table at all.
	IsDeclared(key string) bool
}

// ErrorReporter records failures the codec swallows. It must never block or panic.
type ErrorReporter interface {
	Log(ctx context.Context, err error, details map[string]any)
}

// DecodeResult is the outcome of reading a stored value.
type DecodeResult struct {
	// Value is the raw JSON of the logical value.
	Value []byte

	// Encrypted is true when the stored value was an envelope.
	Encrypted bool

	// Legacy is true when the stored envelope used the legacy scheme and should be
	// re-encrypted under the current version.
	Legacy bool
}

// NeedsUpgrade reports whether a sensitive value should be re-stored under the
// current scheme.
func (r DecodeResult) NeedsUpgrade() bool {
	return !r.Encrypted || r.Legacy
}

// ValueCodec encrypts and decrypts stored values according to key sensitivity.
//
// Failure policy:
//   - default (fail-open): cipher and key failures are reported and the original
//     value is returned with a nil error
//   - strict: failures are returned, and keys missing from the key table are rejected
type ValueCodec interface {
	// EncryptValue returns the representation to persist for raw under key. SAFE keys
	// pass through unchanged; SENSITIVE keys return an envelope as JSON.
	EncryptValue(ctx context.Context, key string, raw []byte) ([]byte, error)

	// DecryptValue recovers the raw JSON of a stored value. Values that are not
	// envelopes are returned unchanged.
	DecryptValue(ctx context.Context, key string, stored []byte) (DecodeResult, error)

	// Rotate decrypts every envelope in stored with the current key, rotates the key,
	// re-encrypts each value under the new one and hands the changed entries to
	// persist. Nothing is rotated if any value fails to decrypt. When persist fails
	// the previous key is restored, so values persist did not write stay readable.
	Rotate(ctx context.Context, stored map[string][]byte, persist PersistFunc) error
}

// PersistFunc writes re-encrypted values. It must either write all of rotated or
// leave the backend as it found it.
type PersistFunc func(ctx context.Context, rotated map[string][]byte) error
