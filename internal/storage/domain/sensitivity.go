package domain

import (
	"slices"
)

// Sensitivity decides whether a logical key is encrypted at rest.
type Sensitivity string

const (
	Sensitive Sensitivity = "SENSITIVE"
	Safe      Sensitivity = "SAFE"
)

// SensitivityMap is an immutable table from logical key to Sensitivity.
// Keys missing from the table classify as Safe.
type SensitivityMap struct {
	entries map[string]Sensitivity
	keys    []string
}

// NewSensitivityMap builds a table from entries.
func NewSensitivityMap(entries map[string]Sensitivity) *SensitivityMap {
	m := &SensitivityMap{
		entries: make(map[string]Sensitivity, len(entries)),
		keys:    make([]string, 0, len(entries)),
	}
	for key, s := range entries {
		m.entries[key] = s
		m.keys = append(m.keys, key)
	}
	slices.Sort(m.keys)
	return m
}

// DefaultSensitivityMap returns the table of every key the client persists.
func DefaultSensitivityMap() *SensitivityMap {
	return NewSensitivityMap(map[string]Sensitivity{
		KeyAuthToken:          Sensitive,
		KeyRefreshToken:       Sensitive,
		KeyUserProfile:        Sensitive,
		KeyRecipients:         Sensitive,
		KeyActiveRecipient:    Sensitive,
		KeyRecipientsBackup:   Sensitive,
		KeyGifts:              Sensitive,
		KeySavedGifts:         Sensitive,
		KeyPurchasedGifts:     Sensitive,
		KeyOnboardingDraft:    Sensitive,
		KeyTheme:              Safe,
		KeyUserPreferences:    Safe,
		KeyOnboardingComplete: Safe,
		KeyAnalyticsEvents:    Safe,
		KeyFeatureFlags:       Safe,
		KeyStorageVersion:     Safe,
	})
}

// Classify returns the sensitivity of key. Undeclared keys are Safe.
func (m *SensitivityMap) Classify(key string) Sensitivity {
	if s, ok := m.entries[key]; ok {
		return s
	}
	return Safe
}

// IsSensitive reports whether key must be encrypted.
func (m *SensitivityMap) IsSensitive(key string) bool {
	return m.Classify(key) == Sensitive
}

// IsDeclared reports whether key has an entry.
func (m *SensitivityMap) IsDeclared(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// DeclaredKeys returns every declared key in lexical order.
func (m *SensitivityMap) DeclaredKeys() []string {
	return slices.Clone(m.keys)
}

// SensitiveKeys returns the declared sensitive keys in lexical order.
func (m *SensitivityMap) SensitiveKeys() []string {
	out := make([]string, 0, len(m.keys))
	for _, key := range m.keys {
		if m.entries[key] == Sensitive {
			out = append(out, key)
		}
	}
	return out
}
