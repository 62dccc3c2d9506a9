package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	recipientDomain "github.com/ribbonapp/ribbon-core/internal/recipient/domain"
	recipientUsecase "github.com/ribbonapp/ribbon-core/internal/recipient/usecase"
)

// RunListRecipients prints every recipient, marking the active one.
func RunListRecipients(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	recipients, err := recipientUseCase.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}
	active, err := recipientUseCase.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to get active recipient: %w", err)
	}

	activeID := ""
	if active != nil {
		activeID = active.ID
	}

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{
			"data":      recipients,
			"active_id": activeID,
			"total":     len(recipients),
		})
	}

	if len(recipients) == 0 {
		_, err := fmt.Fprintln(writer, "No recipients")
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVE\tID\tNAME\tRELATIONSHIP\tBIRTHDAY\tINTERESTS")
	for _, r := range recipients {
		marker := ""
		if r.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, r.ID, r.Name, r.Relationship, r.Birthday, strings.Join(r.Interests, ", "))
	}
	return tw.Flush()
}

// RunSaveRecipient creates a recipient, or replaces it when recipient.ID is set,
// and prints its ID.
func RunSaveRecipient(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	recipient recipientDomain.Recipient,
	activate bool,
) error {
	saved, err := recipientUseCase.Save(ctx, recipient)
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}

	if activate {
		if err := recipientUseCase.SetActive(ctx, saved.ID); err != nil {
			return fmt.Errorf("failed to activate recipient: %w", err)
		}
	}

	logger.Info("recipient saved",
		slog.String("recipient_id", saved.ID),
		slog.Bool("active", activate),
	)
	_, err = fmt.Fprintln(writer, saved.ID)
	return err
}

// RunRemoveRecipient deletes the recipient with id.
func RunRemoveRecipient(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	logger *slog.Logger,
	id string,
) error {
	if err := recipientUseCase.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove recipient: %w", err)
	}

	logger.Info("recipient removed", slog.String("recipient_id", id))
	return nil
}

// RunActivateRecipient marks the recipient with id as active.
func RunActivateRecipient(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	logger *slog.Logger,
	id string,
) error {
	if err := recipientUseCase.SetActive(ctx, id); err != nil {
		return fmt.Errorf("failed to activate recipient: %w", err)
	}

	logger.Info("active recipient changed", slog.String("recipient_id", id))
	return nil
}

// RunClearRecipients backs up and removes every recipient.
func RunClearRecipients(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	writer io.Writer,
	force bool,
) error {
	if !force {
		return fmt.Errorf("refusing to clear recipients without --force")
	}

	count, err := recipientUseCase.ClearAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear recipients: %w", err)
	}

	_, err = fmt.Fprintf(writer, "Cleared %d recipient(s); run 'recipients restore' to undo\n", count)
	return err
}

// RunRestoreRecipients restores the backup taken by the last clear.
func RunRestoreRecipients(
	ctx context.Context,
	recipientUseCase recipientUsecase.RecipientUseCase,
	writer io.Writer,
) error {
	count, err := recipientUseCase.RestoreBackup(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore recipients: %w", err)
	}

	_, err = fmt.Fprintf(writer, "Restored %d recipient(s)\n", count)
	return err
}
