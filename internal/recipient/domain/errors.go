package domain

import (
	"github.com/ribbonapp/ribbon-core/internal/errors"
)

// Recipient errors.
var (
	// ErrRecipientNotFound indicates no recipient has the requested ID.
	ErrRecipientNotFound = errors.Wrap(errors.ErrNotFound, "recipient not found")

	// ErrBackupNotFound indicates there is no backup to restore.
	ErrBackupNotFound = errors.Wrap(errors.ErrNotFound, "recipients backup not found")
)
