package service

import (
	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

// CipherManagerService implements the CipherManager interface.
type CipherManagerService struct{}

// NewCipherManager creates a new CipherManagerService.
func NewCipherManager() *CipherManagerService {
	return &CipherManagerService{}
}

// CreateCipher creates the cipher for the specified envelope version.
// Returns ErrInvalidKeySize if key is not 32 bytes or ErrUnsupportedVersion if the
// version is unknown. The legacy cipher ignores the key.
func (cm *CipherManagerService) CreateCipher(key []byte, version cryptoDomain.Version) (Cipher, error) {
	if version == cryptoDomain.VersionLegacy {
		return LegacyCipher{}, nil
	}

	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch version {
	case cryptoDomain.VersionKeystream:
		return NewKeystream(key)
	case cryptoDomain.VersionAESGCM:
		return NewAESGCM(key)
	case cryptoDomain.VersionChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedVersion
	}
}
