package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrDecrypt is returned when a ciphertext cannot be opened with the
// current key, either because it is corrupt or was sealed with another key.
var ErrDecrypt = errors.New("decrypting credential")

// Cipher seals API tokens at rest with a symmetric key held in a file.
// It is safe for concurrent use.
type Cipher struct {
	key [keySize]byte
}

// NewCipher returns a Cipher for a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", keySize, len(key))
	}
	c := &Cipher{}
	copy(c.key[:], key)
	return c, nil
}

// GenerateKey returns a fresh random key, base64 encoded.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// LoadOrCreateKey reads the base64 key at path. If the file does not
// exist a new key is generated and written with mode 0600; created
// reports whether that happened.
func LoadOrCreateKey(path string) (c *Cipher, created bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		encoded, err := GenerateKey()
		if err != nil {
			return nil, false, err
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, false, fmt.Errorf("creating key directory: %w", err)
			}
		}
		if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
			return nil, false, fmt.Errorf("writing key file: %w", err)
		}
		data = []byte(encoded)
		created = true
	} else if err != nil {
		return nil, false, fmt.Errorf("reading key file: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, false, fmt.Errorf("decoding key file %s: %w", path, err)
	}
	c, err = NewCipher(key)
	if err != nil {
		return nil, false, fmt.Errorf("key file %s: %w", path, err)
	}
	return c, created, nil
}

// Encrypt seals plaintext. The nonce is prepended to the result.
func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plain, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	return string(plain), nil
}
