package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

type fakeSource struct {
	password string
	err      error
	calls    int
}

func (f *fakeSource) Password(service, account string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.password, nil
}

// encryptFixture builds a v10 ciphertext the same way Chromium's Safe
// Storage does, for spec §8 scenario S3: password "peanuts", salt
// "saltysalt", 1003 iterations, plaintext "hello", IV of 16 spaces.
func encryptFixture(t *testing.T, password, plaintext string) []byte {
	t.Helper()
	key := pbkdf2.Key([]byte(password), []byte(pbkdf2Salt), pbkdf2Iterations, keyLenPosix, sha1.New)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append([]byte(plaintext), bytes.Repeat([]byte{byte(pad)}, pad)...)

	iv := bytes.Repeat([]byte{cbcIVByte}, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	cipherText := make([]byte, len(padded))
	mode.CryptBlocks(cipherText, padded)

	return append([]byte("v10"), cipherText...)
}

func TestDecryptPosixRoundTrip(t *testing.T) {
	raw := encryptFixture(t, "peanuts", "hello")
	d := New(&fakeSource{password: "peanuts"})

	plain, err := d.DecryptPosix("service", "account", raw)
	require.NoError(t, err)
	require.Equal(t, "hello", plain)
}

func TestDecryptPosixKeyIsCached(t *testing.T) {
	raw := encryptFixture(t, "peanuts", "hello")
	src := &fakeSource{password: "peanuts"}
	d := New(src)

	_, err := d.DecryptPosix("service", "account", raw)
	require.NoError(t, err)
	_, err = d.DecryptPosix("service", "account", raw)
	require.NoError(t, err)

	require.Equal(t, 1, src.calls)
}

func TestDecryptPosixBadPrefix(t *testing.T) {
	d := New(&fakeSource{password: "peanuts"})
	_, err := d.DecryptPosix("service", "account", []byte("xx garbage"))
	require.ErrorIs(t, err, ErrCipherError)
}

func TestDecryptPosixTooShort(t *testing.T) {
	d := New(&fakeSource{password: "peanuts"})
	_, err := d.DecryptPosix("service", "account", []byte("v1"))
	require.ErrorIs(t, err, ErrBadCiphertextLength)
}

func TestDecryptPosixKeychainError(t *testing.T) {
	d := New(&fakeSource{err: errors.New("keychain locked")})
	raw := encryptFixture(t, "peanuts", "hello")
	_, err := d.DecryptPosix("service", "account", raw)
	require.Error(t, err)
}

func TestDecryptOrFallbackNeverErrors(t *testing.T) {
	d := New(&fakeSource{password: "wrong-password"})
	raw := encryptFixture(t, "peanuts", "hello")

	value, ok := d.DecryptOrFallback("service", "account", raw)
	require.False(t, ok)
	require.NotEmpty(t, value)
}

func TestDecryptWindowsGCM(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, keyLenWindows)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := bytes.Repeat([]byte{0x22}, gcm.NonceSize())
	sealed := gcm.Seal(nil, nonce, []byte("hello"), nil)
	raw := append(append([]byte("v10"), nonce...), sealed...)

	plain, err := DecryptWindowsGCM(key, raw)
	require.NoError(t, err)
	require.Equal(t, "hello", plain)
}

func TestDecryptWindowsGCMBadKeyLength(t *testing.T) {
	_, err := DecryptWindowsGCM([]byte("short"), []byte("v10xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"))
	require.ErrorIs(t, err, ErrBadKeyLength)
}
