// Package usecase implements recipient management on top of the storage service.
package usecase

import (
	"context"

	recipientDomain "github.com/ribbonapp/ribbon-core/internal/recipient/domain"
)

// Storage is the subset of the storage service used for recipients.
type Storage interface {
	GetValue(ctx context.Context, key string, dst any) (bool, error)
	SetValue(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// RecipientUseCase manages the recipient list, the active recipient and the backup
// taken before the list is cleared.
type RecipientUseCase interface {
	// List returns every recipient in insertion order.
	List(ctx context.Context) ([]recipientDomain.Recipient, error)

	// Get returns the recipient with id or ErrRecipientNotFound.
	Get(ctx context.Context, id string) (*recipientDomain.Recipient, error)

	// Save validates and stores recipient. An empty ID creates a new recipient;
	// otherwise the recipient with that ID is replaced.
	Save(ctx context.Context, recipient recipientDomain.Recipient) (*recipientDomain.Recipient, error)

	// Remove deletes the recipient with id, clearing the active recipient if it
	// pointed at it.
	Remove(ctx context.Context, id string) error

	// SetActive marks the recipient with id as active.
	SetActive(ctx context.Context, id string) error

	// GetActive returns the active recipient, or nil when none is set.
	GetActive(ctx context.Context) (*recipientDomain.Recipient, error)

	// ClearAll snapshots the recipients and the active ID to the backup key, then
	// removes both. It returns the number of recipients cleared.
	ClearAll(ctx context.Context) (int, error)

	// RestoreBackup writes the backup back and removes it.
	RestoreBackup(ctx context.Context) (int, error)
}
