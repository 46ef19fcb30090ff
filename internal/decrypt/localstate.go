package decrypt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// localState mirrors the subset of Chromium's Local State JSON file (spec
// §6) this package needs.
type localState struct {
	OSCrypt struct {
		EncryptedKey string `json:"encrypted_key"`
	} `json:"os_crypt"`
}

// WindowsEncryptedKey reads the DPAPI-prefixed, base64-encoded key from a
// Chromium Local State file. The "DPAPI" prefix is stripped from the
// returned bytes; pass them to UnwrapDPAPIKey to get the raw AES-256 key.
func WindowsEncryptedKey(localStatePath string) ([]byte, error) {
	data, err := os.ReadFile(localStatePath)
	if err != nil {
		return nil, fmt.Errorf("decrypt: reading Local State: %w", err)
	}
	var ls localState
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("decrypt: parsing Local State: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ls.OSCrypt.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt: decoding encrypted_key: %w", err)
	}
	const dpapiPrefix = "DPAPI"
	if len(raw) < len(dpapiPrefix) || string(raw[:len(dpapiPrefix)]) != dpapiPrefix {
		return nil, fmt.Errorf("decrypt: encrypted_key missing DPAPI prefix")
	}
	return raw[len(dpapiPrefix):], nil
}
