package usecase

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	recipientDomain "github.com/ribbonapp/ribbon-core/internal/recipient/domain"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

type recipientUseCase struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time

	// mu serializes read-modify-write cycles on the recipient list.
	mu sync.Mutex
}

// NewRecipientUseCase creates a RecipientUseCase.
func NewRecipientUseCase(storage Storage, logger *slog.Logger) RecipientUseCase {
	return &recipientUseCase{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *recipientUseCase) List(ctx context.Context) ([]recipientDomain.Recipient, error) {
	return r.load(ctx)
}

func (r *recipientUseCase) Get(ctx context.Context, id string) (*recipientDomain.Recipient, error) {
	recipients, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOf(recipients, id)
	if idx < 0 {
		return nil, recipientDomain.ErrRecipientNotFound
	}
	return &recipients[idx], nil
}

func (r *recipientUseCase) Save(
	ctx context.Context,
	recipient recipientDomain.Recipient,
) (*recipientDomain.Recipient, error) {
	recipient.Normalize()
	if err := recipient.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	recipients, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	recipient.UpdatedAt = now

	if recipient.ID == "" {
		recipient.ID = uuid.Must(uuid.NewV7()).String()
		recipient.CreatedAt = now
		recipients = append(recipients, recipient)
	} else {
		idx := indexOf(recipients, recipient.ID)
		if idx < 0 {
			return nil, recipientDomain.ErrRecipientNotFound
		}
		recipient.CreatedAt = recipients[idx].CreatedAt
		recipients[idx] = recipient
	}

	if err := r.storage.SetValue(ctx, storageDomain.KeyRecipients, recipients); err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (r *recipientUseCase) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipients, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(recipients, id)
	if idx < 0 {
		return recipientDomain.ErrRecipientNotFound
	}
	recipients = slices.Delete(recipients, idx, idx+1)

	if err := r.storage.SetValue(ctx, storageDomain.KeyRecipients, recipients); err != nil {
		return err
	}

	activeID, err := r.activeID(ctx)
	if err != nil {
		return err
	}
	if activeID == id {
		return r.storage.Remove(ctx, storageDomain.KeyActiveRecipient)
	}
	return nil
}

func (r *recipientUseCase) SetActive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipients, err := r.load(ctx)
	if err != nil {
		return err
	}
	if indexOf(recipients, id) < 0 {
		return recipientDomain.ErrRecipientNotFound
	}

	return r.storage.SetValue(ctx, storageDomain.KeyActiveRecipient, id)
}

func (r *recipientUseCase) GetActive(ctx context.Context) (*recipientDomain.Recipient, error) {
	activeID, err := r.activeID(ctx)
	if err != nil || activeID == "" {
		return nil, err
	}

	recipient, err := r.Get(ctx, activeID)
	if apperrors.Is(err, recipientDomain.ErrRecipientNotFound) {
		return nil, nil
	}
	return recipient, err
}

// ClearAll follows snapshot, clear, log. A failure after the snapshot leaves the
// backup in place so RestoreBackup can recover the list.
func (r *recipientUseCase) ClearAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipients, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	activeID, err := r.activeID(ctx)
	if err != nil {
		return 0, err
	}

	backup := recipientDomain.Backup{
		Recipients: recipients,
		ActiveID:   activeID,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.storage.SetValue(ctx, storageDomain.KeyRecipientsBackup, backup); err != nil {
		return 0, apperrors.Wrap(err, "failed to back up recipients")
	}

	if err := r.storage.Remove(ctx, storageDomain.KeyRecipients); err != nil {
		return 0, err
	}
	if err := r.storage.Remove(ctx, storageDomain.KeyActiveRecipient); err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "recipients cleared",
		slog.Int("count", len(recipients)),
		slog.Bool("had_active", activeID != ""),
	)
	return len(recipients), nil
}

func (r *recipientUseCase) RestoreBackup(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var backup recipientDomain.Backup
	ok, err := r.storage.GetValue(ctx, storageDomain.KeyRecipientsBackup, &backup)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, recipientDomain.ErrBackupNotFound
	}

	if err := r.storage.SetValue(ctx, storageDomain.KeyRecipients, backup.Recipients); err != nil {
		return 0, err
	}
	if backup.ActiveID != "" {
		if err := r.storage.SetValue(ctx, storageDomain.KeyActiveRecipient, backup.ActiveID); err != nil {
			return 0, err
		}
	}
	if err := r.storage.Remove(ctx, storageDomain.KeyRecipientsBackup); err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "recipients restored", slog.Int("count", len(backup.Recipients)))
	return len(backup.Recipients), nil
}

func (r *recipientUseCase) load(ctx context.Context) ([]recipientDomain.Recipient, error) {
	var recipients []recipientDomain.Recipient
	if _, err := r.storage.GetValue(ctx, storageDomain.KeyRecipients, &recipients); err != nil {
		return nil, err
	}
	if recipients == nil {
		recipients = []recipientDomain.Recipient{}
	}
	return recipients, nil
}

func (r *recipientUseCase) activeID(ctx context.Context) (string, error) {
	var id string
	if _, err := r.storage.GetValue(ctx, storageDomain.KeyActiveRecipient, &id); err != nil {
		return "", err
	}
	return id, nil
}

func indexOf(recipients []recipientDomain.Recipient, id string) int {
	return slices.IndexFunc(recipients, func(r recipientDomain.Recipient) bool {
		return r.ID == id
	})
}
