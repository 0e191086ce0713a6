// Package crypto protects personal data at rest: account emails are sealed with
// AES-256-GCM and looked up by a deterministic SHA-256 digest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes for AES-256")
	ErrInvalidCiphertext = errors.New("ciphertext is too short or corrupted")
	ErrEmptyValue        = errors.New("nothing to encrypt")
)

// PII seals and opens personal values with a single AES-256-GCM key.
type PII struct {
	aead cipher.AEAD
}

func NewPII(keyBase64 string) (*PII, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &PII{aead: aead}, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SealEmail encrypts a normalized email; the nonce is prepended to the ciphertext.
func (p *PII) SealEmail(email string) ([]byte, error) {
	email = normalize(email)
	if email == "" {
		return nil, ErrEmptyValue
	}

	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return p.aead.Seal(nonce, nonce, []byte(email), nil), nil
}

func (p *PII) OpenEmail(sealed []byte) (string, error) {
	nonceSize := p.aead.NonceSize()
	if len(sealed) <= nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, body := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := p.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EmailHash is the lookup key for an email. It does not depend on the encryption key,
// so accounts stay findable across key rotation.
func EmailHash(email string) []byte {
	sum := sha256.Sum256([]byte(normalize(email)))
	return sum[:]
}

// TokenHash is how refresh tokens are stored.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a random 32-byte key as base64.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
