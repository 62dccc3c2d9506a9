package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

func TestRecipient_Validate(t *testing.T) {
	tests := []struct {
		name      string
		recipient Recipient
		wantErr   bool
	}{
		{"valid", Recipient{Name: "Alice", Birthday: "1990-04-12", Interests: []string{"tea"}}, false},
		{"name only", Recipient{Name: "Bob"}, false},
		{"empty name", Recipient{Name: ""}, true},
		{"blank name", Recipient{Name: "   "}, true},
		{"name at limit", Recipient{Name: strings.Repeat("a", MaxNameLength)}, false},
		{"name too long", Recipient{Name: strings.Repeat("a", MaxNameLength+1)}, true},
		{"multibyte name at limit", Recipient{Name: strings.Repeat("é", MaxNameLength)}, false},
		{"bad birthday", Recipient{Name: "Alice", Birthday: "12/04/1990"}, true},
		{"empty interest", Recipient{Name: "Alice", Interests: []string{""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipient.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecipient_Normalize(t *testing.T) {
	r := Recipient{
		Name:         "  Alice ",
		Relationship: " sister ",
		Interests:    []string{" tea ", " ", "books"},
	}
	r.Normalize()

	assert.Equal(t, "Alice", r.Name)
	assert.Equal(t, "sister", r.Relationship)
	assert.Equal(t, []string{"tea", "books"}, r.Interests)
}
