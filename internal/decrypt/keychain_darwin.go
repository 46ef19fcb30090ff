//go:build darwin

package decrypt

import (
	"fmt"

	"github.com/keybase/go-keychain"
)

// MacKeychainSource reads the Chromium "Safe Storage" password directly via
// Security.framework (through github.com/keybase/go-keychain), rather than
// shelling out to `security find-generic-password` as spec §4.6 describes
// as the reference implementation — a native binding is the idiomatic Go
// equivalent and avoids a subprocess per browser.
type MacKeychainSource struct{}

// DefaultPasswordSource returns the macOS Keychain-backed source.
func DefaultPasswordSource() PasswordSource { return MacKeychainSource{} }

// Password looks up the generic password item (service, account) using
// SecItemCopyMatching.
func (MacKeychainSource) Password(service, account string) (string, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	if account != "" {
		query.SetAccount(account)
	}
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		return "", fmt.Errorf("keychain: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("keychain: no item for service %q", service)
	}
	return string(results[0].Data), nil
}

// SafeStorageService returns the Keychain service name Chromium-family
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
