package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

// KeystreamCipher implements the Cipher interface with a hash-derived keystream.
//
// The keystream is the concatenation of SHA-256(iv || counter || key) blocks, where
// counter is a 4-byte big-endian block index starting at zero, truncated to the
// plaintext length. Encryption and decryption both XOR the input with the keystream.
//
// Security properties:
//   - 256-bit key, 16-byte random IV generated per encryption
//   - confidentiality only: there is no authentication tag, so a corrupted
//     ciphertext or a wrong key decrypts to garbage instead of failing
//
// Prefer VersionAESGCM or VersionChaCha20 when integrity matters. This cipher is
// kept as the default for format compatibility with existing envelopes.
//
// Thread safety:
//
//	The cipher instance is stateless apart from its key and is safe for concurrent use.
type KeystreamCipher struct {
	key    []byte
	random io.Reader
}

// NewKeystream creates a keystream cipher. The key must be exactly 32 bytes.
func NewKeystream(key []byte) (*KeystreamCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	k := make([]byte, len(key))
	copy(k, key)
	return &KeystreamCipher{key: k, random: rand.Reader}, nil
}

// DeriveKeystream returns length pseudo-random bytes derived from key and iv.
func DeriveKeystream(key, iv []byte, length int) []byte {
	if length <= 0 {
		return []byte{}
	}

	out := make([]byte, 0, length+sha256.Size)
	var counter [4]byte
	for block := uint32(0); len(out) < length; block++ {
		binary.BigEndian.PutUint32(counter[:], block)

		h := sha256.New()
		h.Write(iv)
		h.Write(counter[:])
		h.Write(key)
		out = h.Sum(out)
	}
	return out[:length]
}

// Encrypt XORs plaintext with the keystream of a fresh random 16-byte IV.
func (k *KeystreamCipher) Encrypt(plaintext []byte) (ciphertext, iv []byte, err error) {
	iv = make([]byte, cryptoDomain.KeystreamIVSize)
	if _, err := io.ReadFull(k.random, iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	stream := DeriveKeystream(k.key, iv, len(plaintext))
	defer cryptoDomain.Zero(stream)

	ciphertext = make([]byte, len(plaintext))
	subtle.XORBytes(ciphertext, plaintext, stream)
	return ciphertext, iv, nil
}

// Decrypt XORs ciphertext with the keystream of iv. Wrong keys are not detected.
func (k *KeystreamCipher) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != cryptoDomain.KeystreamIVSize {
		return nil, cryptoDomain.ErrInvalidIVSize
	}

	stream := DeriveKeystream(k.key, iv, len(ciphertext))
	defer cryptoDomain.Zero(stream)

	plaintext := make([]byte, len(ciphertext))
	subtle.XORBytes(plaintext, ciphertext, stream)
	return plaintext, nil
}
