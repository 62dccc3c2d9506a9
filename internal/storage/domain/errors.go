package domain

import (
	"github.com/ribbonapp/ribbon-core/internal/errors"
)

// Storage domain errors.
var (
	// ErrMigrationFailed indicates a schema migration step failed. Initialization is
	// retried on the next call.
	ErrMigrationFailed = errors.Wrap(errors.ErrStorage, "storage migration failed")

	// ErrBackendClosed indicates an operation on a closed backend.
	ErrBackendClosed = errors.Wrap(errors.ErrStorage, "storage backend closed")
)
