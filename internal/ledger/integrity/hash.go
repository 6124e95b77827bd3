// Package integrity provides the content hashing and digital signing
// primitives the ledger uses to make tampering evident.
//
// Digest output and the signing scheme are wire contracts: two deployments
// must produce identical digests and verifiable signatures for the same
// logical block, so neither is negotiable per call.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the length in characters of a rendered digest.
const DigestSize = 64

// Digest returns the SHA-256 digest of input as 64 lowercase hex characters.
func Digest(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}
