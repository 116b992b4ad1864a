// Package cryptoutil seals persisted session values with AES-256-GCM.
// Each ciphertext is bound to the additional data passed as its key, so a value
// opened under any other key fails.
package cryptoutil

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

	"golang.org/x/crypto/argon2"
)

// Sealer encrypts and decrypts values stored under a key.
type Sealer interface {
	Seal(key string, plaintext []byte) (string, error)
	Open(key, sealed string) ([]byte, error)
}

const (
	sealedPrefixV1 = "v1:"
	plainPrefix    = "plain:"
	keySize        = 32
)

// ErrNotSealed is returned by Open for values without a known version prefix.
var ErrNotSealed = errors.New("value is not sealed")

// AESGCMSealer implements Sealer using AES-256-GCM with the storage key as additional data.
type AESGCMSealer struct {
	aead cipher.AEAD
}

// NewAESGCMSealer constructs a sealer. key must be 32 bytes.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("aes-gcm key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &AESGCMSealer{aead: aead}, nil
}

// Seal encrypts plaintext under a random nonce and returns "v1:" + base64(nonce||ciphertext).
func (s *AESGCMSealer) Seal(key string, plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, []byte(key))
	return sealedPrefixV1 + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values written by PlainSealer are accepted so a store can be
// switched to encryption without discarding existing sessions.
func (s *AESGCMSealer) Open(key, sealed string) ([]byte, error) {
	if strings.HasPrefix(sealed, plainPrefix) {
		return PlainSealer{}.Open(key, sealed)
	}
	if !strings.HasPrefix(sealed, sealedPrefixV1) {
		return nil, ErrNotSealed
	}
	data, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("sealed value too short")
	}
	pt, err := s.aead.Open(nil, data[:n], data[n:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return pt, nil
}

// PlainSealer marks values without encrypting them. Useful in tests and when no key is configured.
type PlainSealer struct{}

func (PlainSealer) Seal(_ string, plaintext []byte) (string, error) {
	return plainPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (PlainSealer) Open(_ string, sealed string) ([]byte, error) {
	if !strings.HasPrefix(sealed, plainPrefix) {
		return nil, ErrNotSealed
	}
	return base64.StdEncoding.DecodeString(sealed[len(plainPrefix):])
}

// ParseKey turns configuration into a 32-byte key. A 64-character hex string is used
// as-is; anything else is treated as a passphrase and stretched with argon2id over salt.
// An empty salt falls back to a SHA-256 of the passphrase so the result is stable.
func ParseKey(raw string, salt []byte) []byte {
	if len(raw) == 2*keySize {
		if b, err := hex.DecodeString(raw); err == nil {
			return b
		}
	}
	if len(salt) == 0 {
		sum := sha256.Sum256([]byte("examportal:" + raw))
		salt = sum[:16]
	}
	return argon2.IDKey([]byte(raw), salt, 1, 64*1024, 4, keySize)
}
