package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	sessionDomain "github.com/ribbonapp/ribbon-core/internal/session/domain"
	sessionUsecase "github.com/ribbonapp/ribbon-core/internal/session/usecase"
)

// readPassword prompts for a password. Terminals get no echo; any other reader
// supplies its first line.
func readPassword(streams IOTuple) (string, error) {
	fmt.Fprint(streams.Writer, "Password: ")

	if f, ok := streams.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(streams.Writer)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(streams.Reader).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// RunSignIn authenticates against the remote API and stores the session. An empty
// password is prompted for.
func RunSignIn(
	ctx context.Context,
	sessionUseCase sessionUsecase.SessionUseCase,
	logger *slog.Logger,
	streams IOTuple,
	email, password string,
) error {
	if password == "" {
		var err error
		if password, err = readPassword(streams); err != nil {
			return err
		}
	}

	session, err := sessionUseCase.Authenticate(ctx, sessionDomain.Credentials{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	logger.Info("signed in", slog.String("user_id", session.User.ID))
	_, err = fmt.Fprintf(streams.Writer, "Signed in as %s\n", session.User.Email)
	return err
}

// RunWhoAmI prints the signed-in user.
func RunWhoAmI(
	ctx context.Context,
	sessionUseCase sessionUsecase.SessionUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	user, err := sessionUseCase.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(writer, user)
	}
	_, err = fmt.Fprintf(writer, "%s <%s>\n", user.DisplayName, user.Email)
	return err
}

// RunSignOut removes the stored session.
func RunSignOut(ctx context.Context, sessionUseCase sessionUsecase.SessionUseCase, logger *slog.Logger) error {
	if err := sessionUseCase.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	logger.Info("signed out")
	return nil
}
