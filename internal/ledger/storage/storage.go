// Package storage defines the persistence boundary of the ledger core:
// plain record structs and a narrow repository interface with no business
// logic. The chain integrity engine never depends on how records are stored.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/chainlog/internal/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Lookup APIs surface absence through this sentinel; command APIs that
// require existence propagate it as a failure.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrDuplicateHeight indicates an append collided with an existing
// (chain_id, height) pair. The storage layer enforces this uniqueness
// because the core does not deduplicate concurrent appends.
var ErrDuplicateHeight = apperrors.New(apperrors.CodeDuplicateHeight, "block height already exists for chain")

// ChainRecord captures chain metadata as persisted.
type ChainRecord struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BlockRecord mirrors a finalized block 1:1 plus its chain foreign key and a
// storage timestamp distinct from the logical block timestamp.
type BlockRecord struct {
	ID             string
	ChainID        string
	Height         uint64
	Timestamp      time.Time
	PreviousDigest string
	CurrentDigest  string
	Signature      string
	Nonce          string
	PayloadDigest  string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// OffchainRecord holds a payload stored apart from the chain, linked to its
// block by id only. Deleting it never touches the block or its payload
// digest; that separation is what makes erasure possible.
type OffchainRecord struct {
	DataID    string
	BlockID   string
	DataType  string
	Payload   string // opaque blob: base64 ciphertext, or plaintext when unencrypted
	Encrypted bool
	Metadata  map[string]string
	CreatedAt time.Time
}

// ChainStore persists chain metadata rows.
type ChainStore interface {
	CreateChain(ctx context.Context, record ChainRecord) (ChainRecord, error)
	GetChain(ctx context.Context, chainID string) (ChainRecord, error)
	ListChains(ctx context.Context) ([]ChainRecord, error)
	SetChainActive(ctx context.Context, chainID string, active bool) error
}

// BlockStore persists finalized block rows in height order.
type BlockStore interface {
	AppendBlock(ctx context.Context, record BlockRecord) (BlockRecord, error)
	GetBlockByID(ctx context.Context, blockID string) (BlockRecord, error)
	GetBlockByHeight(ctx context.Context, chainID string, height uint64) (BlockRecord, error)
	ListBlocks(ctx context.Context, chainID string) ([]BlockRecord, error)
}

// OffchainStore persists off-chain payload records.
type OffchainStore interface {
	CreateOffchainData(ctx context.Context, record OffchainRecord) (OffchainRecord, error)
	GetOffchainData(ctx context.Context, dataID string) (OffchainRecord, error)
	GetOffchainDataByBlock(ctx context.Context, blockID string) ([]OffchainRecord, error)
	DeleteOffchainData(ctx context.Context, dataID string) error
}

// Store combines every persistence surface the ledger service needs.
type Store interface {
	ChainStore
	BlockStore
	OffchainStore
}
