//go:build windows

package decrypt

import "fmt"

// UnwrapDPAPIKey unwraps a DPAPI-protected key blob (as returned by
// WindowsEncryptedKey) into the raw AES-256 key via CryptUnprotectData.
// Real DPAPI access requires running as the owning Windows user; this is
// left unimplemented pending a Windows build/test environment (spec's
// "headroom for Windows" — macOS is the supported target, §1).
func UnwrapDPAPIKey(blob []byte) ([]byte, error) {
	return nil, fmt.Errorf("decrypt: DPAPI unwrap not implemented on this build")
}
