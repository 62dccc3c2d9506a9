// Package domain defines the recipient model: the people a user picks gifts for.
package domain

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/ribbonapp/ribbon-core/internal/validation"
)

// MaxNameLength bounds recipient names.
const MaxNameLength = 100

// Recipient is a gift recipient. The whole list is persisted under the
// "recipients" key.
type Recipient struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship,omitempty"`
	Birthday     string    `json:"birthday,omitempty"`
	Interests    []string  `json:"interests,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Normalize trims surrounding whitespace from the text fields.
func (r *Recipient) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Relationship = strings.TrimSpace(r.Relationship)
	r.Birthday = strings.TrimSpace(r.Birthday)
	interests := r.Interests[:0]
	for _, interest := range r.Interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			interests = append(interests, trimmed)
		}
	}
	r.Interests = interests
}

// Validate checks the recipient: a name of at most MaxNameLength characters, an
// optional YYYY-MM-DD birthday and short interests.
func (r *Recipient) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&r.Relationship, validation.RuneLength(0, 50)),
		validation.Field(&r.Birthday, validation.Date("2006-01-02")),
		validation.Field(&r.Interests,
			validation.Length(0, 20),
			validation.Each(validation.Required, validation.RuneLength(1, 50)),
		),
		validation.Field(&r.Notes, validation.RuneLength(0, 1000)),
	)
	return customValidation.WrapValidationError(err)
}

// Backup is the snapshot written to "recipients_backup" before the list is cleared.
type Backup struct {
	Recipients []Recipient `json:"recipients"`
	ActiveID   string      `json:"active_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
