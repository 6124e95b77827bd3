package integrity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// KeyBits is the RSA modulus size for ledger signing keys.
const KeyBits = 2048

// KeyPair holds the asymmetric keys a chain uses to sign block digests.
// The pair is shared with the chain, not owned by it; callers construct it
// once at wiring time and pass it explicitly.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair creates a fresh RSA-2048 signing key pair.
func GenerateKeyPair() (*KeyPair, error) {
	private, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{Private: private, Public: &private.PublicKey}, nil
}

// Sign signs a block digest with PKCS#1 v1.5 over SHA-256 and returns the
// signature as base64. The digest is signed in its rendered hex form so the
// signed bytes match what validators recompute.
func Sign(private *rsa.PrivateKey, digest string) (string, error) {
	if private == nil {
		return "", fmt.Errorf("private key is required")
	}
	if digest == "" {
		return "", fmt.Errorf("digest is required")
	}
	hashed := sha256.Sum256([]byte(digest))
	raw, err := rsa.SignPKCS1v15(rand.Reader, private, crypto.SHA256, hashed[:])
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Verify reports whether signature is a valid signature of digest under the
// public key. Malformed input of any kind yields false, never an error:
// "invalid" is an expected outcome of a security check.
func Verify(public *rsa.PublicKey, digest, signature string) bool {
	if public == nil || digest == "" || signature == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	hashed := sha256.Sum256([]byte(digest))
	return rsa.VerifyPKCS1v15(public, crypto.SHA256, hashed[:], raw) == nil
}

// EncodePrivateKeyPEM renders the private key in PKCS#8 PEM form.
func EncodePrivateKeyPEM(private *rsa.PrivateKey) ([]byte, error) {
	if private == nil {
		return nil, fmt.Errorf("private key is required")
	}
	der, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM renders the public key in PKIX PEM form.
func EncodePublicKeyPEM(public *rsa.PublicKey) ([]byte, error) {
	if public == nil {
		return nil, fmt.Errorf("public key is required")
	}
	der, err := x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParseKeyPairPEM loads a key pair from a PKCS#8 private key PEM block.
func ParseKeyPairPEM(privatePEM []byte) (*KeyPair, error) {
	block, _ := pem.Decode(privatePEM)
	if block == nil {
		return nil, fmt.Errorf("no pem block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	private, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not rsa")
	}
	return &KeyPair{Private: private, Public: &private.PublicKey}, nil
}

// ParsePublicKeyPEM loads a verification-only public key from PKIX PEM.
func ParsePublicKeyPEM(publicPEM []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(publicPEM)
	if block == nil {
		return nil, fmt.Errorf("no pem block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	public, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not rsa")
	}
	return public, nil
}
