// Package chain owns the ordered block sequence: genesis creation, append,
// and full-chain validation.
//
// A chain is a single-writer structure. Whoever mutates it (genesis/append)
// must own it exclusively; finalized blocks never mutate, so concurrent
// validation of already-appended blocks is safe.
package chain

import (
	"fmt"
	"time"

	apperrors "github.com/louisbranch/chainlog/internal/errors"
	"github.com/louisbranch/chainlog/internal/ledger/block"
	"github.com/louisbranch/chainlog/internal/ledger/integrity"
	"github.com/louisbranch/chainlog/internal/platform/id"
)

// Chain is an append-only sequence of blocks. Insertion order is height
// order: no gaps, no reordering. A chain with zero blocks is uninitialized
// and only genesis creation is legal.
type Chain struct {
	ID          string
	Name        string
	Description string
	// Active is metadata, not a state-machine state; whether inactive chains
	// accept appends is service-layer policy.
	Active bool

	keys   *integrity.KeyPair
	blocks []*block.Block
}

// New constructs an empty chain. The signing key pair is an explicit
// construction-time capability; nil means blocks are appended unsigned.
func New(chainID, name, description string, keys *integrity.KeyPair) (*Chain, error) {
	if chainID == "" {
		return nil, fmt.Errorf("chain id is required")
	}
	return &Chain{
		ID:          chainID,
		Name:        name,
		Description: description,
		Active:      true,
		keys:        keys,
	}, nil
}

// FromStored rehydrates a chain and its blocks from persisted state. Blocks
// must already be in height order; they are adopted as-is so validation can
// compare stored digests against recomputed ones.
func FromStored(chainID, name, description string, active bool, keys *integrity.KeyPair, blocks []*block.Block) *Chain {
	return &Chain{
		ID:          chainID,
		Name:        name,
		Description: description,
		Active:      active,
		keys:        keys,
		blocks:      blocks,
	}
}

// CreateGenesis creates, finalizes, signs, and appends the height-0 block.
// It is legal only on an empty chain.
func (c *Chain) CreateGenesis(payload []byte) (*block.Block, error) {
	if len(c.blocks) > 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeAlreadyInitialized,
			"chain already has a genesis block",
			map[string]string{"chain_id": c.ID})
	}
	return c.appendNew(0, "", payload, map[string]string{
		block.MetadataTypeKey: block.MetadataTypeGenesis,
	})
}

// AddBlock creates, finalizes, signs, and appends the next block, linked to
// the current latest block. It is legal only after genesis.
func (c *Chain) AddBlock(payload []byte, metadata map[string]string) (*block.Block, error) {
	if len(c.blocks) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeNoGenesis,
			"chain has no genesis block",
			map[string]string{"chain_id": c.ID})
	}
	last := c.blocks[len(c.blocks)-1]
	return c.appendNew(last.Height+1, last.CurrentDigest, payload, metadata)
}

func (c *Chain) appendNew(height uint64, previousDigest string, payload []byte, metadata map[string]string) (*block.Block, error) {
	blockID, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate block id: %w", err)
	}

	timestamp := time.Now().UTC()
	if len(c.blocks) > 0 {
		// The chain requires non-decreasing timestamps; clamp against clock
		// regression between appends.
		if last := c.blocks[len(c.blocks)-1]; timestamp.Before(last.Timestamp) {
			timestamp = last.Timestamp
		}
	}

	b, err := block.New(blockID, height, timestamp, previousDigest, payload, metadata)
	if err != nil {
		return nil, err
	}
	if err := b.Finalize(); err != nil {
		return nil, err
	}
	if c.keys != nil {
		if err := b.Sign(c.keys.Private); err != nil {
			return nil, err
		}
	}

	c.blocks = append(c.blocks, b)
	return b, nil
}

// Latest returns the highest block, or nil for an empty chain.
func (c *Chain) Latest() *block.Block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// BlockByHeight returns the block at the given height. Absence is not an
// error.
func (c *Chain) BlockByHeight(height uint64) (*block.Block, bool) {
	if height >= uint64(len(c.blocks)) {
		return nil, false
	}
	// Height order equals slice order on valid chains, but scan defensively
	// so lookups stay correct on tampered ones.
	if b := c.blocks[height]; b.Height == height {
		return b, true
	}
	for _, b := range c.blocks {
		if b.Height == height {
			return b, true
		}
	}
	return nil, false
}

// BlockByID returns the block with the given id. Absence is not an error.
func (c *Chain) BlockByID(blockID string) (*block.Block, bool) {
	for _, b := range c.blocks {
		if b.ID == blockID {
			return b, true
		}
	}
	return nil, false
}

// Blocks returns the blocks in height order. The slice is a copy; the blocks
// themselves are shared and must not be mutated.
func (c *Chain) Blocks() []*block.Block {
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len returns the number of blocks.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Keys returns the chain's signing key pair, nil when unsigned.
func (c *Chain) Keys() *integrity.KeyPair {
	return c.keys
}
