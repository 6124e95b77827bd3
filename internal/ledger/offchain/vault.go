// Package offchain stores sensitive payloads apart from the chain.
//
// The chain commits to a payload only through its digest; the payload itself
// lives in an independently deletable record linked by block id. Whether
// payloads are encrypted at rest is an explicit, wiring-time choice between
// the two vault variants: there is no silent plaintext fallback.
package offchain

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/chainlog/internal/ledger/storage"
	"github.com/louisbranch/chainlog/internal/platform/id"
)

// Vault writes and reads off-chain payloads for blocks.
type Vault interface {
	// Put stores a payload linked to a block and returns the stored record.
	Put(ctx context.Context, blockID, dataType string, payload []byte, metadata map[string]string) (storage.OffchainRecord, error)
	// Get returns the plaintext payload and its record.
	Get(ctx context.Context, dataID string) ([]byte, storage.OffchainRecord, error)
	// GetByBlock returns every record linked to a block, payloads decoded.
	GetByBlock(ctx context.Context, blockID string) ([]Entry, error)
	// Erase deletes a record. The linked block is untouched.
	Erase(ctx context.Context, dataID string) error
}

// Entry pairs a decoded payload with its stored record.
type Entry struct {
	Payload []byte
	Record  storage.OffchainRecord
}

func newRecord(blockID, dataType string, metadata map[string]string) (storage.OffchainRecord, error) {
	if blockID == "" {
		return storage.OffchainRecord{}, fmt.Errorf("block id is required")
	}
	dataID, err := id.NewID()
	if err != nil {
		return storage.OffchainRecord{}, fmt.Errorf("generate data id: %w", err)
	}
	return storage.OffchainRecord{
		DataID:    dataID,
		BlockID:   blockID,
		DataType:  dataType,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}
