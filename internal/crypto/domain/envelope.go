// Package domain defines the cryptographic domain model of the encrypted storage
// layer: the versioned envelope persisted for sensitive values, the envelope
// versions and the encoding helpers the ciphers rely on.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/ribbonapp/ribbon-core/internal/validation"
)

// envelopeFields are the exact top-level fields of a persisted envelope.
var envelopeFields = [...]string{"data", "iv", "version", "timestamp"}

// Envelope is the persisted representation of an encrypted value. It is stored as
// the JSON string value of its logical key.
//
// Fields:
//   - Data: base64 ciphertext
//   - IV: base64 random nonce, fresh for every encryption
//   - Version: schema tag selecting the cipher
//   - Timestamp: RFC 3339 creation time, informational only
type Envelope struct {
	Data      string  `json:"data"`
	IV        string  `json:"iv"`
	Version   Version `json:"version"`
	Timestamp string  `json:"timestamp"`
}

// NewEnvelope builds an envelope from raw ciphertext and IV.
func NewEnvelope(ciphertext, iv []byte, version Version, now time.Time) *Envelope {
	return &Envelope{
		Data:      EncodeBase64(ciphertext),
		IV:        EncodeBase64(iv),
		Version:   version,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// ParseEnvelope recognizes an envelope by structure: a JSON object with exactly the
// four envelope fields, each a string. Anything else reports false, which callers
// treat as a never-encrypted value.
func ParseEnvelope(raw []byte) (*Envelope, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	if len(fields) != len(envelopeFields) {
		return nil, false
	}

	values := make(map[string]string, len(envelopeFields))
	for _, name := range envelopeFields {
		field, ok := fields[name]
		if !ok {
			return nil, false
		}
		var s string
		if err := json.Unmarshal(field, &s); err != nil {
			return nil, false
		}
		values[name] = s
	}

	return &Envelope{
		Data:      values["data"],
		IV:        values["iv"],
		Version:   Version(values["version"]),
		Timestamp: values["timestamp"],
	}, true
}

// Validate checks that data and iv are base64 and a version is present.
func (e *Envelope) Validate() error {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Data, customValidation.Base64),
		validation.Field(&e.IV, customValidation.Base64),
		validation.Field(&e.Version, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

// Marshal serializes the envelope for storage.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Ciphertext decodes the data field.
func (e *Envelope) Ciphertext() ([]byte, error) {
	return DecodeBase64(e.Data)
}

// Nonce decodes the iv field.
func (e *Envelope) Nonce() ([]byte, error) {
	return DecodeBase64(e.IV)
}

// IsLegacy reports whether the envelope uses the legacy base64-only scheme.
func (e *Envelope) IsLegacy() bool {
	return e.Version == VersionLegacy
}

// CreatedAt parses the timestamp. Envelopes with unparsable timestamps are still
// valid; the zero time is returned with the parse error.
func (e *Envelope) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}
