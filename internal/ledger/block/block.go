// Package block defines the immutable, digest-committed unit of the ledger.
//
// The canonical digest envelope lives here so field ordering is defined in
// one place and cannot drift between the chain, storage, and verification
// layers.
package block

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/chainlog/internal/ledger/integrity"
)

// TimestampLayout is the canonical textual form of a block timestamp: UTC,
// fixed millisecond precision. It is part of the digest wire contract.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MetadataTypeKey and MetadataTypeGenesis tag the first block of a chain.
const (
	MetadataTypeKey     = "type"
	MetadataTypeGenesis = "genesis"
)

const nonceBytes = 16

// Block is one immutable ledger entry. Fields are frozen once Finalize has
// computed CurrentDigest; callers must not mutate a finalized block, and the
// owning chain never does.
type Block struct {
	// ID is the opaque unique identifier assigned at construction.
	ID string
	// Height is 0 for genesis and predecessor height + 1 afterwards.
	Height uint64
	// Timestamp is the creation instant, UTC, millisecond precision.
	Timestamp time.Time
	// PreviousDigest is the predecessor's digest; empty exactly for genesis.
	PreviousDigest string
	// CurrentDigest is the digest over this block's own fields, frozen by Finalize.
	CurrentDigest string
	// Signature is the base64 signature over CurrentDigest; empty when the
	// chain has no signing key.
	Signature string
	// Nonce is a random per-block token included in the digest input so two
	// otherwise-identical blocks never collide.
	Nonce string
	// PayloadDigest commits to the off-chain payload; empty iff absent.
	PayloadDigest string
	// Metadata is non-sensitive, searchable context. It is not part of the
	// digest input.
	Metadata map[string]string
}

// New constructs an unfinalized block for the create path: a fresh nonce is
// drawn, the payload commitment is computed, and the timestamp is normalized
// to the canonical precision. Finalize and Sign complete the lifecycle.
func New(id string, height uint64, timestamp time.Time, previousDigest string, payload []byte, metadata map[string]string) (*Block, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("block id is required")
	}
	if timestamp.IsZero() {
		return nil, fmt.Errorf("block timestamp is required")
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	payloadDigest, err := PayloadDigest(payload)
	if err != nil {
		return nil, err
	}

	return &Block{
		ID:             id,
		Height:         height,
		Timestamp:      timestamp.UTC().Truncate(time.Millisecond),
		PreviousDigest: previousDigest,
		Nonce:          hex.EncodeToString(nonce),
		PayloadDigest:  payloadDigest,
		Metadata:       cloneMetadata(metadata),
	}, nil
}

// FromStored rehydrates a block from persisted fields verbatim, bypassing
// Finalize and Sign. This is the read path: digests and signatures are taken
// as stored so validation can compare them against recomputed values.
func FromStored(id string, height uint64, timestamp time.Time, previousDigest, currentDigest, signature, nonce, payloadDigest string, metadata map[string]string) *Block {
	return &Block{
		ID:             id,
		Height:         height,
		Timestamp:      timestamp.UTC().Truncate(time.Millisecond),
		PreviousDigest: previousDigest,
		CurrentDigest:  currentDigest,
		Signature:      signature,
		Nonce:          nonce,
		PayloadDigest:  payloadDigest,
		Metadata:       cloneMetadata(metadata),
	}
}

// Finalize computes and freezes CurrentDigest from the block's fields.
// Finalizing twice over unchanged fields yields the same digest.
func (b *Block) Finalize() error {
	if b.Nonce == "" {
		return fmt.Errorf("block nonce is required")
	}
	b.CurrentDigest = b.ComputeDigest()
	return nil
}

// Sign sets the block signature from the private key. The block must be
// finalized first: the signature covers CurrentDigest.
func (b *Block) Sign(private *rsa.PrivateKey) error {
	if b.CurrentDigest == "" {
		return fmt.Errorf("block must be finalized before signing")
	}
	sig, err := integrity.Sign(private, b.CurrentDigest)
	if err != nil {
		return fmt.Errorf("sign block %s: %w", b.ID, err)
	}
	b.Signature = sig
	return nil
}

// VerifySignature reports whether the stored signature is valid under the
// public key. An empty signature is false, never an error.
func (b *Block) VerifySignature(public *rsa.PublicKey) bool {
	if b.Signature == "" {
		return false
	}
	return integrity.Verify(public, b.CurrentDigest, b.Signature)
}

// VerifyHash reports whether CurrentDigest still matches a recomputation
// over the block's fields. This is the tamper check.
func (b *Block) VerifyHash() bool {
	if b.CurrentDigest == "" {
		return false
	}
	return b.CurrentDigest == b.ComputeDigest()
}

// ComputeDigest hashes the canonical envelope of this block's fields.
//
// The envelope is the ordered, pipe-joined concatenation of id, height,
// timestamp, previous digest (empty for genesis), nonce, and payload digest.
// Order and field encodings are the wire contract: change either and every
// stored digest stops verifying.
func (b *Block) ComputeDigest() string {
	envelope := strings.Join([]string{
		b.ID,
		strconv.FormatUint(b.Height, 10),
		b.Timestamp.UTC().Format(TimestampLayout),
		b.PreviousDigest,
		b.Nonce,
		b.PayloadDigest,
	}, "|")
	return integrity.Digest([]byte(envelope))
}

// PayloadDigest computes the commitment for an off-chain payload: the digest
// of its canonical JSON serialization (stable key ordering). The digest of an
// absent payload is the empty string, by convention, not the hash of empty
// bytes.
func PayloadDigest(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return "", fmt.Errorf("payload must be valid JSON: %w", err)
	}
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	return integrity.Digest(canonical), nil
}

// IsGenesis reports whether the block is the first block of its chain.
func (b *Block) IsGenesis() bool {
	return b.Height == 0 && b.PreviousDigest == ""
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
