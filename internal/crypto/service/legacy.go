package service

import (
	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

// LegacyCipher reads envelopes written with VersionLegacy, whose data field is the
// base64 of the plaintext itself. It cannot produce new envelopes.
type LegacyCipher struct{}

// Encrypt always fails; the legacy scheme is read-only.
func (LegacyCipher) Encrypt([]byte) ([]byte, []byte, error) {
	return nil, nil, cryptoDomain.ErrUnsupportedVersion
}

// Decrypt returns the already base64-decoded payload unchanged.
func (LegacyCipher) Decrypt(ciphertext, _ []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}
