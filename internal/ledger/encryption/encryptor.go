// Package encryption seals off-chain payloads with authenticated symmetric
// encryption so the sensitive data can live (and be erased) apart from the
// chain, while the chain keeps only a digest commitment.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	apperrors "github.com/louisbranch/chainlog/internal/errors"
)

const (
	// KeySize is the required raw key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// Encryptor seals and opens payloads with AES-256-GCM.
//
// The sealed blob layout is base64(nonce ‖ tag ‖ ciphertext). A fresh random
// nonce is drawn per call, so sealing identical plaintext twice never yields
// identical blobs.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor constructs an Encryptor from a raw 32-byte key. Any other key
// length fails here, at construction, never later at encryption time.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, apperrors.New(apperrors.CodeMalformedInput,
			fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedInput, "build cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedInput, "build gcm", err)
	}
	return &Encryptor{aead: aead}, nil
}

// GenerateKey returns a fresh random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext and returns the encoded blob. Empty plaintext is
// rejected: an absent payload is represented by the absence of an off-chain
// record, not by an encrypted empty string.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	if e == nil || e.aead == nil {
		return "", apperrors.New(apperrors.CodeMalformedInput, "encryptor is not configured")
	}
	if len(plaintext) == 0 {
		return "", apperrors.New(apperrors.CodeMalformedInput, "plaintext is required")
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends the tag after the ciphertext; the wire layout wants
	// nonce ‖ tag ‖ ciphertext, so split and reorder.
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, NonceSize+TagSize+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens an encoded blob. Invalid base64 or a truncated blob is a
// malformed-input failure; an authentication failure means the ciphertext or
// key was tampered and is reported as its own error kind so callers can
// alert on it specifically.
func (e *Encryptor) Decrypt(blob string) ([]byte, error) {
	if e == nil || e.aead == nil {
		return nil, apperrors.New(apperrors.CodeMalformedInput, "encryptor is not configured")
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedInput, "decode ciphertext blob", err)
	}
	if len(raw) < NonceSize+TagSize {
		return nil, apperrors.New(apperrors.CodeMalformedInput,
			fmt.Sprintf("ciphertext blob too short: %d bytes", len(raw)))
	}

	nonce := raw[:NonceSize]
	tag := raw[NonceSize : NonceSize+TagSize]
	ciphertext := raw[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAuthenticationFailure,
			"ciphertext authentication failed", err)
	}
	return plaintext, nil
}
