// Package secret stores credentials at rest in a reversible, tagged form
// and hands out their plaintext under scoped access.
//
// The encrypted form is "encr1+" + base85(AES-CBC-PKCS7(plaintext + NUL)) +
// "+ypt1". The key and IV come from FDU_KEY and FDU_IV when set; the
// built-in defaults only obscure the value and are not a protection.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	prefix = "encr1+"
	suffix = "+ypt1"

	// KeyEnv and IVEnv override the built-in key material.
	KeyEnv = "FDU_KEY"
	IVEnv  = "FDU_IV"
)

var (
	defaultKey = []byte("?\x11t\xb9\xc3\xbc\xf1\xee\xf0!L9\xd0/\xbb\xd0")
	defaultIV  = []byte("\xf9;\xe7k\xc6\xb3\xea=}P\x11\x18\xebMl\x87")

	warnDefaultKey sync.Once
)

var (
	// ErrReleased is returned when a released Secret is read.
	ErrReleased = errors.New("secret released")

	// ErrMalformed indicates tagged data that does not decrypt.
	ErrMalformed = errors.New("malformed encrypted secret")
)

// IsEncrypted reports whether data carries the encrypted tags.
func IsEncrypted(data string) bool {
	return strings.HasPrefix(data, prefix) && strings.HasSuffix(data, suffix) &&
		len(data) >= len(prefix)+len(suffix)
}

// Encrypt returns the tagged encrypted form of plain. Nil key or iv select
// the defaults.
func Encrypt(plain string, key, iv []byte) (string, error) {
	key, iv = material(key, iv)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("secret: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	data := pkcs7Pad(append([]byte(plain), 0), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return prefix + encodeBase85(out) + suffix, nil
}

// Decrypt reverses Encrypt.
func Decrypt(data string, key, iv []byte) (string, error) {
	if !IsEncrypted(data) {
		return "", fmt.Errorf("%w: missing tags", ErrMalformed)
	}
	key, iv = material(key, iv)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("secret: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	raw, err := decodeBase85(data[len(prefix) : len(data)-len(suffix)])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrMalformed, len(raw))
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)

	out, err = pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if len(out) == 0 || out[len(out)-1] != 0 {
		return "", fmt.Errorf("%w: missing terminator", ErrMalformed)
	}
	return string(out[:len(out)-1]), nil
}

func material(key, iv []byte) ([]byte, []byte) {
	if len(key) == 0 {
		warnDefaultKey.Do(func() {
			logrus.Warnf("using the built-in secret key; set %s and %s to protect stored passwords", KeyEnv, IVEnv)
		})
		key = defaultKey
	}
	if len(iv) == 0 {
		iv = defaultIV
	}
	return key, iv
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformed)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformed)
		}
	}
	return data[:len(data)-n], nil
}

// Secret holds a credential that is either plaintext or encrypted. Once
// released every read fails with ErrReleased.
type Secret struct {
	mu       sync.Mutex
	data     string
	key      []byte
	iv       []byte
	released bool
}

// New wraps data. Nil key or iv select the defaults.
func New(data string, key, iv []byte) *Secret {
	return &Secret{data: data, key: key, iv: iv}
}

// FromEnv wraps data using key material from FDU_KEY and FDU_IV.
func FromEnv(data string) *Secret {
	return New(data, []byte(os.Getenv(KeyEnv)), []byte(os.Getenv(IVEnv)))
}

// IsEncrypted reports whether the held data is in encrypted form.
func (s *Secret) IsEncrypted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return IsEncrypted(s.data)
}

// Reveal returns the plaintext.
func (s *Secret) Reveal() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", ErrReleased
	}
	if IsEncrypted(s.data) {
		return Decrypt(s.data, s.key, s.iv)
	}
	return s.data, nil
}

// Encrypted returns the encrypted form, encrypting plaintext on the fly.
func (s *Secret) Encrypted() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", ErrReleased
	}
	if IsEncrypted(s.data) {
		return s.data, nil
	}
	return Encrypt(s.data, s.key, s.iv)
}

// WithDecrypted calls fn with the plaintext and releases the secret
// afterwards, whatever fn returns.
func (s *Secret) WithDecrypted(fn func(plain string) error) error {
	plain, err := s.Reveal()
	if err != nil {
		return err
	}
	defer s.Release()
	return fn(plain)
}

// Release drops the held data. Further reads fail with ErrReleased.
func (s *Secret) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = ""
	s.released = true
}

// Released reports whether Release was called.
func (s *Secret) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// String never prints the credential.
func (s *Secret) String() string {
	return "[secret]"
}
