package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fdu/internal/config"
	"fdu/internal/secret"
	"fdu/internal/services/auth"

	"golang.org/x/term"
)

// ErrNoPassword is returned when no password could be found or asked for.
var ErrNoPassword = errors.New("no password available")

// Password returns the password for login. An explicit value wins, then the
// keychain entry, then an interactive prompt when stdin is a terminal.
func Password(login, explicit string, store auth.Store, prompt io.Writer) (*secret.Secret, error) {
	if strings.TrimSpace(explicit) != "" {
		return secret.FromEnv(explicit), nil
	}
	if store != nil {
		pw, err := store.GetPassword(login)
		switch {
		case err == nil:
			return secret.FromEnv(pw), nil
		case !errors.Is(err, auth.ErrPasswordNotFound):
			return nil, fmt.Errorf("session: keychain lookup for %s: %w", login, err)
		}
	}
	if prompt != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := PromptPassword(prompt, fmt.Sprintf("Password for %s: ", login))
		if err != nil {
			return nil, err
		}
		return secret.FromEnv(pw), nil
	}
	return nil, fmt.Errorf("%w for %s: use --password, 'fdu auth login %s' or a password in the config", ErrNoPassword, login, login)
}

// UpdaterPassword returns the password stored in cfg, falling back to the
// keychain entry of its login.
func UpdaterPassword(cfg *config.Updater, store auth.Store) (*secret.Secret, error) {
	if cfg.HasPassword() {
		return cfg.Password()
	}
	login, err := cfg.Login()
	if err != nil {
		return nil, err
	}
	return Password(login, "", store, nil)
}

// PromptPassword reads a password from the terminal without echo. The
// password is returned as typed; surrounding spaces are part of it.
func PromptPassword(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	pw := string(b)
	if strings.TrimSpace(pw) == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return pw, nil
}
