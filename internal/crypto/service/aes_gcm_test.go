package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

func TestNewAESGCM(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		c, err := NewAESGCM(newTestKey(t))
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("invalid key size", func(t *testing.T) {
		c, err := NewAESGCM(make([]byte, 16))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
		assert.Nil(t, c)
	})
}

func TestAESGCMCipher_EncryptDecrypt(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		plaintext := []byte(`{"name":"Grandma"}`)
		ciphertext, nonce, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, nonce, 12)
		assert.Len(t, ciphertext, len(plaintext)+16)

		decrypted, err := c.Decrypt(ciphertext, nonce)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("tampered ciphertext fails", func(t *testing.T) {
		ciphertext, nonce, err := c.Encrypt([]byte("value"))
		require.NoError(t, err)
		ciphertext[0] ^= 0xff

		_, err = c.Decrypt(ciphertext, nonce)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		ciphertext, nonce, err := c.Encrypt([]byte("value"))
		require.NoError(t, err)

		other, err := NewAESGCM(newTestKey(t))
		require.NoError(t, err)
		_, err = other.Decrypt(ciphertext, nonce)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("invalid nonce size", func(t *testing.T) {
		_, err := c.Decrypt([]byte("value"), make([]byte, 16))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidIVSize)
	})
}
