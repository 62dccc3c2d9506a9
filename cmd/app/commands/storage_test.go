package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

func TestRunStorageInit(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("success", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("Initialize", ctx).Return(nil)

		var out bytes.Buffer
		require.NoError(t, RunStorageInit(ctx, storage, logger, &out))
		assert.Contains(t, out.String(), storageDomain.SchemaVersion)
		storage.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("Initialize", ctx).Return(errors.New("backend down"))

		err := RunStorageInit(ctx, storage, logger, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize storage")
	})
}

func TestRunStorageGet(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("GetRaw", ctx, storageDomain.KeyTheme).Return([]byte(`"dark"`), true, nil)

		var out bytes.Buffer
		require.NoError(t, RunStorageGet(ctx, storage, &out, storageDomain.KeyTheme))
		assert.Equal(t, "\"dark\"\n", out.String())
	})

	t.Run("missing", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("GetRaw", ctx, storageDomain.KeyTheme).Return(nil, false, nil)

		err := RunStorageGet(ctx, storage, &bytes.Buffer{}, storageDomain.KeyTheme)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("empty key", func(t *testing.T) {
		err := RunStorageGet(ctx, &mockStorage{}, &bytes.Buffer{}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
	})
}

func TestRunStorageSet(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("valid json", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("SetRaw", ctx, storageDomain.KeyFeatureFlags, []byte(`{"beta":true}`)).Return(nil)

		require.NoError(t, RunStorageSet(ctx, storage, logger, storageDomain.KeyFeatureFlags, `{"beta":true}`))
		storage.AssertExpectations(t)
	})

	t.Run("invalid json", func(t *testing.T) {
		storage := &mockStorage{}

		err := RunStorageSet(ctx, storage, logger, storageDomain.KeyTheme, `dark`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid JSON")
		storage.AssertNotCalled(t, "SetRaw")
	})
}

func TestRunStorageRemove(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{}
	storage.On("Remove", ctx, storageDomain.KeyTheme).Return(nil)

	require.NoError(t, RunStorageRemove(ctx, storage, slog.Default(), storageDomain.KeyTheme))
	storage.AssertExpectations(t)
}

func TestRunStorageKeys(t *testing.T) {
	ctx := context.Background()
	keys := []string{storageDomain.KeyAuthToken, storageDomain.KeyTheme}

	t.Run("text", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("GetAllKeys", ctx).Return(keys, nil)

		var out bytes.Buffer
		require.NoError(t, RunStorageKeys(ctx, storage, &out, FormatText))
		assert.Equal(t, "auth_token\ntheme\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("GetAllKeys", ctx).Return(keys, nil)

		var out bytes.Buffer
		require.NoError(t, RunStorageKeys(ctx, storage, &out, FormatJSON))

		var result struct {
			Keys  []string `json:"keys"`
			Total int      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, keys, result.Keys)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("invalid format", func(t *testing.T) {
		err := RunStorageKeys(ctx, &mockStorage{}, &bytes.Buffer{}, "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunStorageClear(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("requires force", func(t *testing.T) {
		storage := &mockStorage{}
		require.Error(t, RunStorageClear(ctx, storage, logger, false))
		storage.AssertNotCalled(t, "Clear")
	})

	t.Run("forced", func(t *testing.T) {
		storage := &mockStorage{}
		storage.On("Clear", ctx).Return(nil)
		require.NoError(t, RunStorageClear(ctx, storage, logger, true))
		storage.AssertExpectations(t)
	})
}
