package decrypt

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowsEncryptedKeyStripsDPAPIPrefix(t *testing.T) {
	raw := append([]byte("DPAPI"), []byte{0x01, 0x02, 0x03}...)
	encoded := base64.StdEncoding.EncodeToString(raw)
	content := `{"os_crypt":{"encrypted_key":"` + encoded + `"}}`

	path := filepath.Join(t.TempDir(), "Local State")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	key, err := WindowsEncryptedKey(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, key)
}

func TestWindowsEncryptedKeyMissingFile(t *testing.T) {
	_, err := WindowsEncryptedKey(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestWindowsEncryptedKeyMissingPrefix(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("not-dpapi-data"))
	content := `{"os_crypt":{"encrypted_key":"` + encoded + `"}}`
	path := filepath.Join(t.TempDir(), "Local State")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := WindowsEncryptedKey(path)
	require.Error(t, err)
}

func TestUnwrapDPAPIKeyUnavailableOnThisBuild(t *testing.T) {
	_, err := UnwrapDPAPIKey([]byte{0x01})
	require.Error(t, err)
}
