// Package cryptox seals credential tokens at rest. A key is derived from a
// user passphrase with Argon2id and tokens are encrypted with AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fediauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// sealedPrefix marks values produced by Seal. Values without it are treated
// as plaintext so a store written before sealing was enabled stays readable.
const sealedPrefix = "sealed:v1:"

var ErrMalformed = errors.New("malformed sealed value")

// DeriveKey stretches passphrase with salt into a 32-byte AES-256 key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns a digest of key that can be stored to detect a wrong
// passphrase without storing the key itself.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// Sealer encrypts and decrypts short strings.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// Plain is the Sealer used when no passphrase is configured.
type Plain struct{}

func (Plain) Seal(plaintext string) (string, error) { return plaintext, nil }

func (Plain) Open(value string) (string, error) {
	if strings.HasPrefix(value, sealedPrefix) {
		return "", fmt.Errorf("%w: value is sealed but no passphrase is configured", common.ErrSealingKey)
	}
	return value, nil
}

// AESSealer is an AES-GCM Sealer.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer builds a Sealer from a 16, 24 or 32 byte key.
func NewAESSealer(key []byte) (*AESSealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSealer{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce and returns
// "sealed:v1:" + base64(nonce || ciphertext). Empty input stays empty.
func (s *AESSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Unprefixed values are returned unchanged.
func (s *AESSealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrMalformed
	}
	plaintext, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSealingKey, err)
	}
	return string(plaintext), nil
}
