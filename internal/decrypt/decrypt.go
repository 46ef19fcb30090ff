// Package decrypt derives a Chromium "Safe Storage" key from the OS
// keychain and decrypts v10/v11 encrypted cookie values, per spec §4.6.
package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/encoding/unicode"
)

const (
	pbkdf2Salt       = "saltysalt"
	pbkdf2Iterations = 1003
	keyLenPosix      = 16
	keyLenWindows    = 32
	cbcIVByte        = ' '
)

// Error kinds named in spec §4.6.
var (
	ErrBadKeyLength        = fmt.Errorf("decrypt: bad key length")
	ErrBadCiphertextLength = fmt.Errorf("decrypt: bad ciphertext length")
	ErrCipherError         = fmt.Errorf("decrypt: cipher error")
	ErrUnpadding           = fmt.Errorf("decrypt: unpadding error")
)

// PasswordSource supplies the per-browser Keychain/keyring password. The
// macOS, Linux, and Windows implementations live in keychain_*.go files,
// selected by build tag.
type PasswordSource interface {
	Password(service, account string) (string, error)
}

// Decryptor derives and memoizes the PBKDF2 key for each (service, account)
// pair — spec §4.6/§5: "the Keychain password is fetched at most once and
// cached for the process lifetime."
type Decryptor struct {
	source PasswordSource

	mu    sync.Mutex
	cache map[string][]byte // service+account -> derived key
}

// New creates a Decryptor backed by source (typically the platform
// Keychain/keyring implementation returned by DefaultPasswordSource).
func New(source PasswordSource) *Decryptor {
	return &Decryptor{source: source, cache: make(map[string][]byte)}
}

func (d *Decryptor) key(service, account string, keyLen int) ([]byte, error) {
	cacheKey := service + "\x00" + account
	d.mu.Lock()
	if k, ok := d.cache[cacheKey]; ok && len(k) == keyLen {
		d.mu.Unlock()
		return k, nil
	}
	d.mu.Unlock()

	password, err := d.source.Password(service, account)
	if err != nil {
		return nil, fmt.Errorf("decrypt: keychain lookup for %s: %w", service, err)
	}
	key := pbkdf2.Key([]byte(password), []byte(pbkdf2Salt), pbkdf2Iterations, keyLen, sha1.New)

	d.mu.Lock()
	d.cache[cacheKey] = key
	d.mu.Unlock()
	return key, nil
}

// DecryptPosix decrypts a macOS/Linux v10/v11 value using AES-128-CBC with
// the PBKDF2-derived key and a 16-byte space IV, per spec §4.6.
func (d *Decryptor) DecryptPosix(service, account string, raw []byte) (string, error) {
	if len(raw) < 3 {
		return "", ErrBadCiphertextLength
	}
	prefix := string(raw[:3])
	if prefix != "v10" && prefix != "v11" {
		return "", fmt.Errorf("%w: unrecognized prefix %q", ErrCipherError, prefix)
	}
	cipherText := raw[3:]
	if len(cipherText)%aes.BlockSize != 0 || len(cipherText) == 0 {
		return "", ErrBadCiphertextLength
	}

	key, err := d.key(service, account, keyLenPosix)
	if err != nil {
		return "", err
	}
	if len(key) != keyLenPosix {
		return "", ErrBadKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCipherError, err)
	}
	iv := bytes.Repeat([]byte{cbcIVByte}, aes.BlockSize)
	mode := cipher.NewCBCDecrypter(block, iv)
	plain := make([]byte, len(cipherText))
	mode.CryptBlocks(plain, cipherText)

	unpadded, err := pkcsUnpad(plain)
	if err != nil {
		return "", err
	}
	return sanitizeUTF8(unpadded), nil
}

// DecryptWindowsGCM decrypts a Windows v10 value using AES-256-GCM, where
// key is the DPAPI-unwrapped key from Local State (spec §4.6). Layout after
// the 3-byte prefix: 12-byte nonce, ciphertext, 16-byte tag.
func DecryptWindowsGCM(key, raw []byte) (string, error) {
	if len(key) != keyLenWindows {
		return "", ErrBadKeyLength
	}
	if len(raw) < 3 {
		return "", ErrBadCiphertextLength
	}
	body := raw[3:]
	const nonceSize = 12
	const tagSize = 16
	if len(body) < nonceSize+tagSize {
		return "", ErrBadCiphertextLength
	}
	nonce := body[:nonceSize]
	cipherText := body[nonceSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCipherError, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCipherError, err)
	}
	plain, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCipherError, err)
	}
	return sanitizeUTF8(plain), nil
}

// pkcsUnpad strips PKCS-style padding: the last byte is the pad length,
// 0 meaning no padding, per spec §4.6.
func pkcsUnpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	pad := int(data[len(data)-1])
	if pad == 0 {
		return data, nil
	}
	if pad > len(data) || pad > aes.BlockSize {
		return nil, ErrUnpadding
	}
	return data[:len(data)-pad], nil
}

// sanitizeUTF8 mirrors the ExportedCookie invariant (spec §3): the result
// must be valid UTF-8. golang.org/x/text's UTF8 decoder replaces invalid
// runs with U+FFFD instead of silently truncating, which is a better
// fallback than Go's built-in string([]byte) (which never errors but can
// smuggle invalid byte sequences through unexamined).
func sanitizeUTF8(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// DecryptOrFallback never fails to produce a string: on any decryption
// error it returns the raw bytes sanitized as UTF-8 instead, with ok=false,
// per spec §4.6/§8 invariant 7 ("decryption failure never produces a
// missing record").
func (d *Decryptor) DecryptOrFallback(service, account string, raw []byte) (value string, ok bool) {
	v, err := d.DecryptPosix(service, account, raw)
	if err != nil {
		return sanitizeUTF8(raw), false
	}
	return v, true
}
