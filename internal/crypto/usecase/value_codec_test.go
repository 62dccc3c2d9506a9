package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
	cryptoService "github.com/ribbonapp/ribbon-core/internal/crypto/service"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

type stubClassifier map[string]bool

func (s stubClassifier) IsSensitive(key string) bool { return s[key] }

func (s stubClassifier) IsDeclared(key string) bool {
	_, ok := s[key]
	return ok
}

var testClassifier = stubClassifier{
	"gifts":      true,
	"auth_token": true,
	"theme":      false,
}

type recordingReporter struct {
	mu      sync.Mutex
	errs    []error
	details []map[string]any
}

func (r *recordingReporter) Log(_ context.Context, err error, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.details = append(r.details, details)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type mockKeyManager struct {
	mock.Mock
}

func (m *mockKeyManager) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKeyManager) RotateKey(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockKeyManager) RestoreKey(ctx context.Context, key []byte) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockKeyManager) DeleteKey(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestCodec(t *testing.T, opts CodecOptions) (ValueCodec, cryptoService.KeyManager, *recordingReporter) {
	t.Helper()
	keyManager := cryptoService.NewKeyManager(cryptoService.NewMemorySecureStore())
	reporter := &recordingReporter{}
	codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), reporter, opts)
	require.NoError(t, err)
	return codec, keyManager, reporter
}

func legacyEnvelope(t *testing.T, raw string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"data":      cryptoDomain.EncodeBase64([]byte(raw)),
		"iv":        "",
		"version":   string(cryptoDomain.VersionLegacy),
		"timestamp": "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	return b
}

func TestNewValueCodec(t *testing.T) {
	keyManager := cryptoService.NewKeyManager(cryptoService.NewMemorySecureStore())

	t.Run("legacy version is not writable", func(t *testing.T) {
		_, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil,
			CodecOptions{Version: cryptoDomain.VersionLegacy})
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedVersion)
	})

	t.Run("default version", func(t *testing.T) {
		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil, CodecOptions{})
		require.NoError(t, err)

		stored, err := codec.EncryptValue(context.Background(), "gifts", []byte(`[]`))
		require.NoError(t, err)
		env, ok := cryptoDomain.ParseEnvelope(stored)
		require.True(t, ok)
		assert.Equal(t, cryptoDomain.CurrentVersion, env.Version)
	})
}

func TestValueCodec_SafeKeysPassThrough(t *testing.T) {
	ctx := context.Background()
	codec, _, _ := newTestCodec(t, CodecOptions{})

	raw := []byte(`"dark"`)
	stored, err := codec.EncryptValue(ctx, "theme", raw)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	result, err := codec.DecryptValue(ctx, "theme", stored)
	require.NoError(t, err)
	assert.Equal(t, raw, result.Value)
	assert.False(t, result.Encrypted)
}

func TestValueCodec_SensitiveRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, version := range []cryptoDomain.Version{
		cryptoDomain.VersionKeystream,
		cryptoDomain.VersionAESGCM,
		cryptoDomain.VersionChaCha20,
	} {
		t.Run(string(version), func(t *testing.T) {
			codec, _, reporter := newTestCodec(t, CodecOptions{Version: version})
			raw := []byte(`[{"id":"1","name":"Mug"}]`)

			stored, err := codec.EncryptValue(ctx, "gifts", raw)
			require.NoError(t, err)
			assert.NotContains(t, string(stored), "Mug")

			var fields map[string]string
			require.NoError(t, json.Unmarshal(stored, &fields))
			assert.Len(t, fields, 4)
			assert.Equal(t, string(version), fields["version"])

			result, err := codec.DecryptValue(ctx, "gifts", stored)
			require.NoError(t, err)
			assert.JSONEq(t, string(raw), string(result.Value))
			assert.True(t, result.Encrypted)
			assert.False(t, result.Legacy)
			assert.False(t, result.NeedsUpgrade())
			assert.Zero(t, reporter.count())
		})
	}
}

func TestValueCodec_DecryptValue(t *testing.T) {
	ctx := context.Background()

	t.Run("legacy envelope is decoded and flagged", func(t *testing.T) {
		codec, _, _ := newTestCodec(t, CodecOptions{})

		result, err := codec.DecryptValue(ctx, "auth_token", legacyEnvelope(t, `"tok_123"`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`"tok_123"`), result.Value)
		assert.True(t, result.Legacy)
		assert.True(t, result.NeedsUpgrade())
	})

	t.Run("plaintext under sensitive key is returned unchanged", func(t *testing.T) {
		codec, _, _ := newTestCodec(t, CodecOptions{})

		result, err := codec.DecryptValue(ctx, "gifts", []byte(`[{"id":"1"}]`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"id":"1"}]`), result.Value)
		assert.False(t, result.Encrypted)
		assert.True(t, result.NeedsUpgrade())
	})

	t.Run("wrong key degrades to stored value", func(t *testing.T) {
		codec, keyManager, reporter := newTestCodec(t, CodecOptions{})
		stored, err := codec.EncryptValue(ctx, "gifts", []byte(`{"secret":"value"}`))
		require.NoError(t, err)

		require.NoError(t, keyManager.RotateKey(ctx))

		result, err := codec.DecryptValue(ctx, "gifts", stored)
		require.NoError(t, err)
		assert.Equal(t, stored, result.Value)
		assert.Equal(t, 1, reporter.count())
		assert.Equal(t, "decrypt", reporter.details[0]["operation"])
	})

	t.Run("wrong key fails in strict mode", func(t *testing.T) {
		codec, keyManager, reporter := newTestCodec(t, CodecOptions{Strict: true})
		stored, err := codec.EncryptValue(ctx, "gifts", []byte(`{"secret":"value"}`))
		require.NoError(t, err)

		require.NoError(t, keyManager.RotateKey(ctx))

		_, err = codec.DecryptValue(ctx, "gifts", stored)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Equal(t, 1, reporter.count())
	})

	t.Run("unknown envelope version", func(t *testing.T) {
		codec, _, reporter := newTestCodec(t, CodecOptions{Strict: true})
		stored := []byte(`{"data":"AA==","iv":"AA==","version":"9.0.0","timestamp":"t"}`)

		_, err := codec.DecryptValue(ctx, "gifts", stored)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedVersion)
		assert.Equal(t, 1, reporter.count())
	})
}

func TestValueCodec_KeyManagerFailure(t *testing.T) {
	ctx := context.Background()
	keyManager := &mockKeyManager{}
	keyManager.On("GetOrCreateKey", ctx).Return(nil, cryptoDomain.ErrSecureStoreUnavailable)

	t.Run("fail-open returns raw value", func(t *testing.T) {
		reporter := &recordingReporter{}
		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), reporter, CodecOptions{})
		require.NoError(t, err)

		stored, err := codec.EncryptValue(ctx, "auth_token", []byte(`"tok"`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`"tok"`), stored)
		assert.Equal(t, 1, reporter.count())
		assert.ErrorIs(t, reporter.errs[0], cryptoDomain.ErrSecureStoreUnavailable)
	})

	t.Run("strict returns error", func(t *testing.T) {
		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil,
			CodecOptions{Strict: true})
		require.NoError(t, err)

		_, err = codec.EncryptValue(ctx, "auth_token", []byte(`"tok"`))
		assert.ErrorIs(t, err, cryptoDomain.ErrSecureStoreUnavailable)
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

func TestValueCodec_UndeclaredKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("fail-open treats them as safe", func(t *testing.T) {
		codec, _, _ := newTestCodec(t, CodecOptions{})
		stored, err := codec.EncryptValue(ctx, "unmapped", []byte(`1`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`1`), stored)
	})

	t.Run("strict rejects them", func(t *testing.T) {
		codec, _, _ := newTestCodec(t, CodecOptions{Strict: true})

		_, err := codec.EncryptValue(ctx, "unmapped", []byte(`1`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = codec.DecryptValue(ctx, "unmapped", []byte(`1`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

// collect returns a PersistFunc that stores what it is given in *dst.
func collect(dst *map[string][]byte) PersistFunc {
	return func(_ context.Context, rotated map[string][]byte) error {
		*dst = rotated
		return nil
	}
}

func TestValueCodec_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("values stay readable under the new key", func(t *testing.T) {
		codec, keyManager, _ := newTestCodec(t, CodecOptions{})
		before, err := keyManager.GetOrCreateKey(ctx)
		require.NoError(t, err)

		gifts, err := codec.EncryptValue(ctx, "gifts", []byte(`["a","b"]`))
		require.NoError(t, err)
		token, err := codec.EncryptValue(ctx, "auth_token", []byte(`"tok"`))
		require.NoError(t, err)

		stored := map[string][]byte{
			"gifts":      gifts,
			"auth_token": token,
			"theme":      []byte(`"dark"`),
		}

		var rotated map[string][]byte
		require.NoError(t, codec.Rotate(ctx, stored, collect(&rotated)))
		assert.Len(t, rotated, 2)
		assert.NotContains(t, rotated, "theme")

		after, err := keyManager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)

		result, err := codec.DecryptValue(ctx, "gifts", rotated["gifts"])
		require.NoError(t, err)
		assert.JSONEq(t, `["a","b"]`, string(result.Value))

		result, err = codec.DecryptValue(ctx, "auth_token", rotated["auth_token"])
		require.NoError(t, err)
		assert.Equal(t, []byte(`"tok"`), result.Value)
	})

	t.Run("legacy envelopes are upgraded", func(t *testing.T) {
		codec, _, _ := newTestCodec(t, CodecOptions{})

		var rotated map[string][]byte
		require.NoError(t, codec.Rotate(ctx, map[string][]byte{"auth_token": legacyEnvelope(t, `"old"`)}, collect(&rotated)))

		env, ok := cryptoDomain.ParseEnvelope(rotated["auth_token"])
		require.True(t, ok)
		assert.Equal(t, cryptoDomain.CurrentVersion, env.Version)
	})

	t.Run("persist failure restores the previous key", func(t *testing.T) {
		codec, keyManager, _ := newTestCodec(t, CodecOptions{Strict: true})
		before, err := keyManager.GetOrCreateKey(ctx)
		require.NoError(t, err)

		gifts, err := codec.EncryptValue(ctx, "gifts", []byte(`[{"id":"1","name":"Mug"}]`))
		require.NoError(t, err)

		writeErr := errors.New("disk full")
		err = codec.Rotate(ctx, map[string][]byte{"gifts": gifts}, func(context.Context, map[string][]byte) error {
			return writeErr
		})
		require.ErrorIs(t, err, writeErr)

		after, err := keyManager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		result, err := codec.DecryptValue(ctx, "gifts", gifts)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"1","name":"Mug"}]`, string(result.Value))
	})

	t.Run("failed key restore is joined", func(t *testing.T) {
		previous := make([]byte, 32)
		keyManager := &mockKeyManager{}
		keyManager.On("GetOrCreateKey", ctx).Return(previous, nil)
		keyManager.On("RotateKey", ctx).Return(nil)
		keyManager.On("RestoreKey", ctx, mock.Anything).Return(errors.New("keychain locked"))

		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil, CodecOptions{})
		require.NoError(t, err)

		writeErr := errors.New("disk full")
		err = codec.Rotate(ctx, map[string][]byte{}, func(context.Context, map[string][]byte) error {
			return writeErr
		})
		assert.ErrorIs(t, err, writeErr)
		assert.ErrorContains(t, err, "failed to restore key after aborted rotation")
	})

	t.Run("undecryptable value aborts before rotating", func(t *testing.T) {
		keyManager := &mockKeyManager{}
		keyManager.On("GetOrCreateKey", ctx).Return(make([]byte, 32), nil)

		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil, CodecOptions{})
		require.NoError(t, err)

		corrupt := []byte(`{"data":"!!","iv":"AA==","version":"2.0.0","timestamp":"t"}`)
		persisted := false
		err = codec.Rotate(ctx, map[string][]byte{"gifts": corrupt}, func(context.Context, map[string][]byte) error {
			persisted = true
			return nil
		})
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidEnvelope)
		assert.False(t, persisted)
		keyManager.AssertNotCalled(t, "RotateKey", mock.Anything)
	})

	t.Run("rotation failure is returned", func(t *testing.T) {
		keyManager := &mockKeyManager{}
		keyManager.On("GetOrCreateKey", ctx).Return(make([]byte, 32), nil)
		keyManager.On("RotateKey", ctx).Return(errors.New("keychain locked"))

		codec, err := NewValueCodec(testClassifier, keyManager, cryptoService.NewCipherManager(), nil, CodecOptions{})
		require.NoError(t, err)

		err = codec.Rotate(ctx, map[string][]byte{}, collect(new(map[string][]byte)))
		assert.ErrorContains(t, err, "failed to rotate key")
		keyManager.AssertNotCalled(t, "RestoreKey", mock.Anything, mock.Anything)
	})
}

func TestValueCodec_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	codec, _, reporter := newTestCodec(t, CodecOptions{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := codec.EncryptValue(ctx, "gifts", []byte(`{"n":1}`))
			assert.NoError(t, err)
			result, err := codec.DecryptValue(ctx, "gifts", stored)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"n":1}`, string(result.Value))
		}()
	}
	wg.Wait()

	assert.Zero(t, reporter.count())
}
