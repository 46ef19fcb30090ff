//go:build !darwin

package decrypt

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringSource is the cross-platform fallback: Linux Secret Service (via
// dbus) or Windows Credential Manager, through github.com/zalando/go-keyring.
// Chromium on Linux uses a fixed, well-known password ("peanuts") rather
// than a keyring secret unless a desktop keyring is present; when
// go-keyring's Get reports ErrNotFound, Password returns that fixed password.
type KeyringSource struct{}

// DefaultPasswordSource returns the non-macOS keyring-backed source.
func DefaultPasswordSource() PasswordSource { return KeyringSource{} }

const linuxFallbackPassword = "peanuts"

func (KeyringSource) Password(service, account string) (string, error) {
	if account == "" {
		account = "Chromium"
	}
	pw, err := keyring.Get(service, account)
	if err == nil {
		return pw, nil
	}
	if err == keyring.ErrNotFound {
		return linuxFallbackPassword, nil
	}
	return "", fmt.Errorf("keyring: %w", err)
}

// SafeStorageService returns the keyring service name Chromium-family
// browsers register their encryption password under.
func SafeStorageService(browser string) string {
	switch browser {
	case "Chrome":
		return "Chrome Safe Storage"
	case "Chromium":
		return "Chromium Safe Storage"
	case "Edge":
		return "Microsoft Edge Safe Storage"
	case "Brave":
		return "Brave Safe Storage"
	default:
		return browser + " Safe Storage"
	}
}
