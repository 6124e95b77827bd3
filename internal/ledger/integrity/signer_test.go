package integrity

import (
	"strings"
	"testing"
)

func testKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	return keys
}

func TestSignAndVerify(t *testing.T) {
	keys := testKeyPair(t)
	digest := Digest([]byte("block content"))

	sig, err := Sign(keys.Private, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}

	if !Verify(keys.Public, digest, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	keys := testKeyPair(t)
	other := testKeyPair(t)
	digest := Digest([]byte("block content"))

	sig, err := Sign(keys.Private, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if Verify(other.Public, digest, sig) {
		t.Fatal("expected verification to fail with a different key")
	}
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	keys := testKeyPair(t)
	digest := Digest([]byte("block content"))

	sig, err := Sign(keys.Private, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if Verify(keys.Public, Digest([]byte("tampered")), sig) {
		t.Fatal("expected verification to fail for a different digest")
	}
}

func TestVerifyNeverPanicsOnMalformedInput(t *testing.T) {
	keys := testKeyPair(t)
	digest := Digest([]byte("block content"))

	if Verify(keys.Public, digest, "not base64 %%%") {
		t.Fatal("expected false for malformed base64")
	}
	if Verify(keys.Public, digest, "aGVsbG8=") {
		t.Fatal("expected false for well-formed but invalid signature bytes")
	}
	if Verify(keys.Public, digest, "") {
		t.Fatal("expected false for empty signature")
	}
	if Verify(nil, digest, "aGVsbG8=") {
		t.Fatal("expected false for nil key")
	}
}

func TestSignRequiresInputs(t *testing.T) {
	keys := testKeyPair(t)

	if _, err := Sign(nil, "digest"); err == nil {
		t.Fatal("expected error for nil private key")
	}
	if _, err := Sign(keys.Private, ""); err == nil {
		t.Fatal("expected error for empty digest")
	}
}

func TestKeyPairPEMRoundTrip(t *testing.T) {
	keys := testKeyPair(t)

	privatePEM, err := EncodePrivateKeyPEM(keys.Private)
	if err != nil {
		t.Fatalf("encode private key: %v", err)
	}
	if !strings.Contains(string(privatePEM), "PRIVATE KEY") {
		t.Fatal("expected private key pem block")
	}

	publicPEM, err := EncodePublicKeyPEM(keys.Public)
	if err != nil {
		t.Fatalf("encode public key: %v", err)
	}

	restored, err := ParseKeyPairPEM(privatePEM)
	if err != nil {
		t.Fatalf("parse key pair: %v", err)
	}

	digest := Digest([]byte("round trip"))
	sig, err := Sign(restored.Private, digest)
	if err != nil {
		t.Fatalf("sign with restored key: %v", err)
	}

	public, err := ParsePublicKeyPEM(publicPEM)
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}
	if !Verify(public, digest, sig) {
		t.Fatal("expected restored keys to interoperate")
	}
}

func TestParseKeyPairPEMErrors(t *testing.T) {
	if _, err := ParseKeyPairPEM([]byte("not pem")); err == nil {
		t.Fatal("expected error for non-pem input")
	}
	if _, err := ParsePublicKeyPEM([]byte("not pem")); err == nil {
		t.Fatal("expected error for non-pem input")
	}
}
