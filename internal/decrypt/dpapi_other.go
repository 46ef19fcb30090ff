//go:build !windows

package decrypt

import "fmt"

// UnwrapDPAPIKey is unavailable outside Windows; DPAPI is a Windows-only
// facility. Chromium's Windows v10 decryption path (DecryptWindowsGCM) is
// therefore only reachable when a key has been supplied out of band.
func UnwrapDPAPIKey(blob []byte) ([]byte, error) {
	return nil, fmt.Errorf("decrypt: DPAPI is only available on Windows")
}
