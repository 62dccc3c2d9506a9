package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
	cryptoService "github.com/ribbonapp/ribbon-core/internal/crypto/service"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// CodecOptions configures a value codec.
type CodecOptions struct {
	// Version selects the envelope version written by EncryptValue. Zero means
	// cryptoDomain.CurrentVersion.
	Version cryptoDomain.Version

	// Strict makes the codec fail closed.
	Strict bool
}

// valueCodec implements ValueCodec.
//
// Encrypt and decrypt hold the read lock for the whole key fetch and cipher call;
// Rotate holds the write lock, so no operation observes a half-rotated key.
type valueCodec struct {
	classifier    Classifier
	keyManager    cryptoService.KeyManager
	cipherManager cryptoService.CipherManager
	reporter      ErrorReporter
	version       cryptoDomain.Version
	strict        bool
	now           func() time.Time
	mu            sync.RWMutex
}

// NewValueCodec creates a ValueCodec. reporter may be nil.
func NewValueCodec(
	classifier Classifier,
	keyManager cryptoService.KeyManager,
	cipherManager cryptoService.CipherManager,
	reporter ErrorReporter,
	opts CodecOptions,
) (ValueCodec, error) {
	version := opts.Version
	if version == "" {
		version = cryptoDomain.CurrentVersion
	}
	if !version.Writable() {
		return nil, fmt.Errorf("%w: %q cannot be used for writing", cryptoDomain.ErrUnsupportedVersion, version)
	}

	return &valueCodec{
		classifier:    classifier,
		keyManager:    keyManager,
		cipherManager: cipherManager,
		reporter:      reporter,
		version:       version,
		strict:        opts.Strict,
		now:           time.Now,
	}, nil
}

// EncryptValue wraps sensitive values in an envelope.
func (c *valueCodec) EncryptValue(ctx context.Context, key string, raw []byte) ([]byte, error) {
	if err := c.checkDeclared(key); err != nil {
		return nil, err
	}
	if !c.classifier.IsSensitive(key) {
		return raw, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stored, err := c.encrypt(ctx, raw)
	if err != nil {
		return c.degrade(ctx, "encrypt", key, raw, err)
	}
	return stored, nil
}

// DecryptValue opens envelopes stored under sensitive keys.
func (c *valueCodec) DecryptValue(ctx context.Context, key string, stored []byte) (DecodeResult, error) {
	if err := c.checkDeclared(key); err != nil {
		return DecodeResult{}, err
	}
	if !c.classifier.IsSensitive(key) {
		return DecodeResult{Value: stored}, nil
	}

	env, ok := cryptoDomain.ParseEnvelope(stored)
	if !ok {
		return DecodeResult{Value: stored}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := c.open(ctx, env)
	if err != nil {
		value, derr := c.degrade(ctx, "decrypt", key, stored, err)
		return DecodeResult{Value: value, Encrypted: true}, derr
	}
	return DecodeResult{Value: raw, Encrypted: true, Legacy: env.IsLegacy()}, nil
}

// Rotate re-encrypts stored envelopes under a freshly rotated key.
func (c *valueCodec) Rotate(ctx context.Context, stored map[string][]byte, persist PersistFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	plaintexts := make(map[string][]byte, len(stored))
	defer func() {
		for _, p := range plaintexts {
			cryptoDomain.Zero(p)
		}
	}()

	for key, value := range stored {
		if !c.classifier.IsSensitive(key) {
			continue
		}
		env, ok := cryptoDomain.ParseEnvelope(value)
		if !ok {
			continue
		}
		raw, err := c.open(ctx, env)
		if err != nil {
			c.report(ctx, err, "rotate", key)
			return fmt.Errorf("failed to decrypt %q before rotation: %w", key, err)
		}
		plaintexts[key] = raw
	}

	previous, err := c.keyManager.GetOrCreateKey(ctx)
	if err != nil {
		c.report(ctx, err, "rotate", "")
		return fmt.Errorf("failed to read key before rotation: %w", err)
	}
	defer cryptoDomain.Zero(previous)

	if err := c.keyManager.RotateKey(ctx); err != nil {
		c.report(ctx, err, "rotate", "")
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	rotated := make(map[string][]byte, len(plaintexts))
	for key, raw := range plaintexts {
		envelope, err := c.encrypt(ctx, raw)
		if err != nil {
			c.report(ctx, err, "rotate", key)
			return c.restoreKey(ctx, previous, fmt.Errorf("failed to re-encrypt %q after rotation: %w", key, err))
		}
		rotated[key] = envelope
	}

	if err := persist(ctx, rotated); err != nil {
		return c.restoreKey(ctx, previous, err)
	}
	return nil
}

// restoreKey puts previous back after a failed rotation and returns cause, joined
// with the restore failure if there was one.
func (c *valueCodec) restoreKey(ctx context.Context, previous []byte, cause error) error {
	if err := c.keyManager.RestoreKey(ctx, previous); err != nil {
		err = fmt.Errorf("failed to restore key after aborted rotation: %w", err)
		c.report(ctx, err, "rotate", "")
		return apperrors.Join(cause, err)
	}
	return cause
}

// encrypt must be called with c.mu held.
func (c *valueCodec) encrypt(ctx context.Context, raw []byte) ([]byte, error) {
	cipher, err := c.cipherFor(ctx, c.version)
	if err != nil {
		return nil, err
	}

	ciphertext, iv, err := cipher.Encrypt(raw)
	if err != nil {
		return nil, err
	}
	return cryptoDomain.NewEnvelope(ciphertext, iv, c.version, c.now()).Marshal()
}

// open must be called with c.mu held.
func (c *valueCodec) open(ctx context.Context, env *cryptoDomain.Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	version, err := cryptoDomain.ParseVersion(string(env.Version))
	if err != nil {
		return nil, err
	}

	ciphertext, err := env.Ciphertext()
	if err != nil {
		return nil, err
	}

	var iv []byte
	if !env.IsLegacy() {
		if iv, err = env.Nonce(); err != nil {
			return nil, err
		}
	}

	cipher, err := c.cipherFor(ctx, version)
	if err != nil {
		return nil, err
	}

	raw, err := cipher.Decrypt(ciphertext, iv)
	if err != nil {
		return nil, err
	}

	// Stored values are JSON text. The keystream cipher has no tag, so this is the
	// only way a wrong key or corrupted ciphertext shows up.
	if !json.Valid(raw) {
		cryptoDomain.Zero(raw)
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return raw, nil
}

func (c *valueCodec) cipherFor(ctx context.Context, version cryptoDomain.Version) (cryptoService.Cipher, error) {
	if version == cryptoDomain.VersionLegacy {
		return c.cipherManager.CreateCipher(nil, version)
	}

	key, err := c.keyManager.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	return c.cipherManager.CreateCipher(key, version)
}

func (c *valueCodec) checkDeclared(key string) error {
	if !c.strict || c.classifier.IsDeclared(key) {
		return nil
	}
	return apperrors.NewValidationError("storage key is not declared in the key table", nil).
		WithDetail("key", key)
}

// degrade applies the failure policy: strict mode returns the error, otherwise the
// failure is reported and fallback is returned.
func (c *valueCodec) degrade(
	ctx context.Context,
	operation, key string,
	fallback []byte,
	err error,
) ([]byte, error) {
	c.report(ctx, err, operation, key)
	if c.strict {
		return nil, fmt.Errorf("failed to %s value for %q: %w", operation, key, err)
	}
	return fallback, nil
}

func (c *valueCodec) report(ctx context.Context, err error, operation, key string) {
	if c.reporter == nil {
		return
	}
	details := map[string]any{
		"component": "value_codec",
		"operation": operation,
	}
	if key != "" {
		details["key"] = key
	}
	c.reporter.Log(ctx, err, details)
}
