// Package service coordinates the chain integrity engine with persistence.
//
// It is deliberately thin: chains own block construction and validation,
// storage owns rows, the vault owns off-chain payloads. The service adds the
// glue the core leaves to its collaborator: existence checks, single-writer
// serialization per chain, and the active-chain append policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/louisbranch/chainlog/internal/errors"
	"github.com/louisbranch/chainlog/internal/ledger/block"
	"github.com/louisbranch/chainlog/internal/ledger/chain"
	"github.com/louisbranch/chainlog/internal/ledger/integrity"
	"github.com/louisbranch/chainlog/internal/ledger/offchain"
	"github.com/louisbranch/chainlog/internal/ledger/storage"
	"github.com/louisbranch/chainlog/internal/platform/id"
)

// ErrPayloadNotStored reports that a block row committed but the off-chain
// payload write failed. The chain stays valid: its state equals a
// post-erasure chain, with the digest commitment durable and the payload
// stored nowhere. The payload must be re-submitted as a new block.
var ErrPayloadNotStored = errors.New("offchain payload not stored")

// Service exposes the ledger operations a transport layer can call.
type Service struct {
	store storage.Store
	keys  *integrity.KeyPair
	vault offchain.Vault

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires a ledger service. The signing key pair may be nil (unsigned
// chains); the vault may be nil when off-chain payload storage is not
// configured, in which case appends with payloads still commit the digest
// but store nothing off-chain.
func New(store storage.Store, keys *integrity.KeyPair, vault offchain.Vault) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &Service{
		store: store,
		keys:  keys,
		vault: vault,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// chainLock returns the per-chain mutex that serializes writers. Finalized
// blocks never mutate, so reads and validations need no lock.
func (s *Service) chainLock(chainID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[chainID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chainID] = lock
	}
	return lock
}

// CreateChain registers a new, empty chain.
func (s *Service) CreateChain(ctx context.Context, name, description string) (storage.ChainRecord, error) {
	chainID, err := id.NewID()
	if err != nil {
		return storage.ChainRecord{}, fmt.Errorf("generate chain id: %w", err)
	}
	return s.store.CreateChain(ctx, storage.ChainRecord{
		ID:          chainID,
		Name:        name,
		Description: description,
		Active:      true,
	})
}

// InitChain creates the genesis block for an existing, empty chain.
func (s *Service) InitChain(ctx context.Context, chainID string, payload []byte) (*block.Block, error) {
	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.loadChain(ctx, chainID)
	if err != nil {
		return nil, err
	}

	created, err := c.CreateGenesis(payload)
	if err != nil {
		return nil, err
	}
	return s.persistBlock(ctx, chainID, created, payload, "genesis", nil)
}

// AppendBlock appends a block committing to payload, and stores the payload
// off-chain through the vault when one is configured.
func (s *Service) AppendBlock(ctx context.Context, chainID string, payload []byte, dataType string, metadata map[string]string) (*block.Block, error) {
	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.loadChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, apperrors.WithMetadata(apperrors.CodeChainInactive,
			"chain does not accept appends",
			map[string]string{"chain_id": chainID})
	}

	created, err := c.AddBlock(payload, metadata)
	if err != nil {
		return nil, err
	}
	return s.persistBlock(ctx, chainID, created, payload, dataType, metadata)
}

// ValidateChain rehydrates a chain from storage and runs a full validation
// pass over it.
func (s *Service) ValidateChain(ctx context.Context, chainID string, opts ...chain.ValidateOption) (*chain.Report, error) {
	c, err := s.loadChain(ctx, chainID)
	if err != nil {
		return nil, err
	}

	report := c.Validate(ctx, opts...)
	if !report.Valid {
		log.Printf("chain %s failed validation: %d errors across %d blocks", chainID, len(report.Errors), report.TotalBlocks)
	}
	return report, nil
}

// GetChain returns chain metadata.
func (s *Service) GetChain(ctx context.Context, chainID string) (storage.ChainRecord, error) {
	return s.store.GetChain(ctx, chainID)
}

// ListChains returns every registered chain.
func (s *Service) ListChains(ctx context.Context) ([]storage.ChainRecord, error) {
	return s.store.ListChains(ctx)
}

// SetChainActive flips the append policy flag of a chain.
func (s *Service) SetChainActive(ctx context.Context, chainID string, active bool) error {
	return s.store.SetChainActive(ctx, chainID, active)
}

// GetBlock returns one block by id.
func (s *Service) GetBlock(ctx context.Context, blockID string) (*block.Block, error) {
	record, err := s.store.GetBlockByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	return blockFromRecord(record), nil
}

// GetBlockByHeight returns the block at a height within a chain.
func (s *Service) GetBlockByHeight(ctx context.Context, chainID string, height uint64) (*block.Block, error) {
	record, err := s.store.GetBlockByHeight(ctx, chainID, height)
	if err != nil {
		return nil, err
	}
	return blockFromRecord(record), nil
}

// OffchainData returns the decoded off-chain payloads linked to a block.
func (s *Service) OffchainData(ctx context.Context, blockID string) ([]offchain.Entry, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("offchain vault is not configured")
	}
	return s.vault.GetByBlock(ctx, blockID)
}

// EraseOffchainData deletes one off-chain record. The chain and its payload
// digests are untouched, so validation still passes after erasure.
func (s *Service) EraseOffchainData(ctx context.Context, dataID string) error {
	if s.vault == nil {
		return fmt.Errorf("offchain vault is not configured")
	}
	return s.vault.Erase(ctx, dataID)
}

// loadChain rehydrates a domain chain from persisted rows.
func (s *Service) loadChain(ctx context.Context, chainID string) (*chain.Chain, error) {
	record, err := s.store.GetChain(ctx, chainID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListBlocks(ctx, chainID)
	if err != nil {
		return nil, err
	}

	blocks := make([]*block.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, blockFromRecord(row))
	}

	return chain.FromStored(record.ID, record.Name, record.Description, record.Active, s.keys, blocks), nil
}

// persistBlock commits the block row, then the off-chain payload. The order
// is fixed: the off-chain record's foreign key requires the block row to
// exist first. A vault failure therefore leaves a committed block without
// its payload; the returned block and ErrPayloadNotStored report that
// partial write instead of hiding it behind a generic failure.
func (s *Service) persistBlock(ctx context.Context, chainID string, b *block.Block, payload []byte, dataType string, metadata map[string]string) (*block.Block, error) {
	if _, err := s.store.AppendBlock(ctx, blockToRecord(chainID, b)); err != nil {
		return nil, err
	}

	if s.vault != nil && len(payload) > 0 {
		if _, err := s.vault.Put(ctx, b.ID, dataType, payload, metadata); err != nil {
			return b, fmt.Errorf("%w for committed block %s: %v", ErrPayloadNotStored, b.ID, err)
		}
	}

	return b, nil
}

func blockToRecord(chainID string, b *block.Block) storage.BlockRecord {
	return storage.BlockRecord{
		ID:             b.ID,
		ChainID:        chainID,
		Height:         b.Height,
		Timestamp:      b.Timestamp,
		PreviousDigest: b.PreviousDigest,
		CurrentDigest:  b.CurrentDigest,
		Signature:      b.Signature,
		Nonce:          b.Nonce,
		PayloadDigest:  b.PayloadDigest,
		Metadata:       b.Metadata,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func blockFromRecord(record storage.BlockRecord) *block.Block {
	return block.FromStored(record.ID, record.Height, record.Timestamp,
		record.PreviousDigest, record.CurrentDigest, record.Signature,
		record.Nonce, record.PayloadDigest, record.Metadata)
}
