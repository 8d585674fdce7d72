// Package secret encrypts credentials at rest with a symmetric key derived
// from an operator-provided passphrase. Both operations fail when the
// passphrase is absent or the input is malformed.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// EnvKey names the environment variable carrying the passphrase.
const EnvKey = "TRADEMON_SECRET_KEY"

var (
	// ErrNoKey is returned when the passphrase environment variable is
	// unset or empty.
	ErrNoKey = errors.New("secret: " + EnvKey + " is not set")

	// ErrMalformed is returned when a ciphertext cannot be decoded or
	// authenticated.
	ErrMalformed = errors.New("secret: malformed ciphertext")
)

const (
	saltLen    = 16
	pbkdf2Iter = 100_000
	keyLen     = 32 // AES-256
)

// Encrypt seals plaintext with AES-256-GCM. The key is derived per message
// from the passphrase with PBKDF2-SHA256 and a random salt; the output is
// base64(salt || nonce || ciphertext).
func Encrypt(plaintext string) (string, error) {
	pass, err := passphrase()
	if err != nil {
		return "", err
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	aead, err := newAEAD(pass, salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string) (string, error) {
	pass, err := passphrase()
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformed
	}
	if len(raw) < saltLen {
		return "", ErrMalformed
	}
	salt, rest := raw[:saltLen], raw[saltLen:]
	aead, err := newAEAD(pass, salt)
	if err != nil {
		return "", err
	}
	if len(rest) < aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrMalformed
	}
	return string(plain), nil
}

func passphrase() (string, error) {
	pass := os.Getenv(EnvKey)
	if pass == "" {
		return "", ErrNoKey
	}
	return pass, nil
}

func newAEAD(pass string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(pass), salt, pbkdf2Iter, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return cipher.NewGCM(block)
}
