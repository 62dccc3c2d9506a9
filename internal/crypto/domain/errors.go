package domain

import (
	"github.com/ribbonapp/ribbon-core/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so that
// normalization in the error logger classifies them without knowing this package.
var (
	// ErrUnsupportedVersion indicates an envelope version no cipher is registered for.
	ErrUnsupportedVersion = errors.Wrap(errors.ErrInvalidInput, "unsupported envelope version")

	// ErrInvalidKeySize indicates the secret key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidIVSize indicates an IV or nonce of the wrong length.
	ErrInvalidIVSize = errors.Wrap(errors.ErrInvalidInput, "invalid iv size")

	// ErrInvalidEncoding indicates a base64 or hex payload that does not decode.
	ErrInvalidEncoding = errors.Wrap(errors.ErrInvalidInput, "invalid encoding")

	// ErrInvalidEnvelope indicates a value that looks like an envelope but cannot be used.
	ErrInvalidEnvelope = errors.Wrap(errors.ErrInvalidInput, "invalid envelope")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// For security reasons, the specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrSecureStoreUnavailable indicates no durable confidential key store exists.
	// Encryption cannot proceed without one.
	ErrSecureStoreUnavailable = errors.Wrap(errors.ErrStorage, "secure store unavailable")
)

// ErrUnsupportedKMSScheme indicates a KMS_KEY_URI whose scheme has no registered
// keeper driver.
var ErrUnsupportedKMSScheme = errors.Wrap(errors.ErrInvalidInput, "unsupported kms scheme")
