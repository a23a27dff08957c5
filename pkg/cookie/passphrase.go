package cookie

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// PassphraseEnv overrides every other passphrase source
	PassphraseEnv = "XHS_COOKIE_PASSPHRASE"

	keyringService = "xhs"
	keyringUser    = "cookie-passphrase"
)

// ResolvePassphrase finds the cookie encryption passphrase.
// Order: environment, OS keyring, passphrase file. A new one is generated only
// when the keyring answers that it holds none; it is stored in the keyring, or
// in file if the keyring refuses it. A keyring that fails to answer with no
// passphrase file to fall back on is an error.
func ResolvePassphrase(file string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	pass, keyringErr := keyring.Get(keyringService, keyringUser)
	if keyringErr == nil && pass != "" {
		return pass, nil
	}

	if file != "" {
		if content, err := os.ReadFile(file); err == nil {
			if pass := strings.TrimSpace(string(content)); pass != "" {
				return pass, nil
			}
		}
	}

	if keyringErr != nil && !errors.Is(keyringErr, keyring.ErrNotFound) {
		return "", fmt.Errorf("failed to read passphrase from keyring (set %s or write one to the passphrase file): %w",
			PassphraseEnv, keyringErr)
	}

	pass, err := generatePassphrase()
	if err != nil {
		return "", err
	}
	if err := keyring.Set(keyringService, keyringUser, pass); err == nil {
		return pass, nil
	}

	if file == "" {
		return "", errors.New("keyring refused the passphrase and no passphrase file is configured")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return "", fmt.Errorf("failed to create passphrase directory: %w", err)
	}
	if err := os.WriteFile(file, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

// StorePassphrase saves an operator-chosen passphrase in the OS keyring
func StorePassphrase(pass string) error {
	if strings.TrimSpace(pass) == "" {
		return errors.New("passphrase must not be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, pass); err != nil {
		return fmt.Errorf("failed to store passphrase in keyring: %w", err)
	}
	return nil
}

// ForgetPassphrase removes the keyring entry; a missing entry is not an error
func ForgetPassphrase() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete passphrase from keyring: %w", err)
	}
	return nil
}

func generatePassphrase() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
