package domain

// Version is the schema tag stored in the "version" field of an envelope. It selects
// the cipher used to produce the envelope's ciphertext.
type Version string

const (
	// VersionLegacy marks envelopes written by the original client. The payload is
	// only base64-encoded; there is no key and no real confidentiality. Legacy
	// envelopes are read-only and get upgraded on the next read or migration.
	VersionLegacy Version = "1.0.0"

	// VersionKeystream marks envelopes encrypted with the SHA-256 keystream cipher.
	//
	// Key features:
	//   - 256-bit key
	//   - 16-byte random IV per encryption
	//   - confidentiality only, no authentication tag
	VersionKeystream Version = "2.0.0"

	// VersionAESGCM marks envelopes encrypted with AES-256-GCM.
	//
	// Key features:
	//   - 256-bit key
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	VersionAESGCM Version = "3.0.0"

	// VersionChaCha20 marks envelopes encrypted with ChaCha20-Poly1305.
	//
	// Key features:
	//   - 256-bit key
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	VersionChaCha20 Version = "3.1.0"

	// CurrentVersion is the default version for new envelopes.
	CurrentVersion = VersionKeystream
)

const (
	// KeySize is the size in bytes of the per-install secret key.
	KeySize = 32

	// KeystreamIVSize is the IV size in bytes of the keystream cipher.
	KeystreamIVSize = 16
)

// Authenticated reports whether ciphertexts of this version carry an integrity tag.
func (v Version) Authenticated() bool {
	return v == VersionAESGCM || v == VersionChaCha20
}

// Writable reports whether new envelopes may be produced with this version.
func (v Version) Writable() bool {
	switch v {
	case VersionKeystream, VersionAESGCM, VersionChaCha20:
		return true
	default:
		return false
	}
}

// ParseVersion validates a version string.
func ParseVersion(s string) (Version, error) {
	v := Version(s)
	switch v {
	case VersionLegacy, VersionKeystream, VersionAESGCM, VersionChaCha20:
		return v, nil
	default:
		return "", ErrUnsupportedVersion
	}
}
