package offchain

import (
	"context"
	"fmt"

	"github.com/louisbranch/chainlog/internal/ledger/storage"
)

// PlaintextVault stores payloads unencrypted. Choosing it is a deliberate,
// typed configuration decision for deployments where at-rest encryption is
// handled elsewhere; nothing ever falls back to it implicitly.
type PlaintextVault struct {
	store storage.OffchainStore
}

// NewPlaintextVault wires a vault that stores payloads as-is.
func NewPlaintextVault(store storage.OffchainStore) (*PlaintextVault, error) {
	if store == nil {
		return nil, fmt.Errorf("offchain store is required")
	}
	return &PlaintextVault{store: store}, nil
}

// Put stores the payload verbatim.
func (v *PlaintextVault) Put(ctx context.Context, blockID, dataType string, payload []byte, metadata map[string]string) (storage.OffchainRecord, error) {
	if len(payload) == 0 {
		return storage.OffchainRecord{}, fmt.Errorf("payload is required")
	}
	record, err := newRecord(blockID, dataType, metadata)
	if err != nil {
		return storage.OffchainRecord{}, err
	}
	record.Payload = string(payload)
	record.Encrypted = false

	return v.store.CreateOffchainData(ctx, record)
}

// Get loads one record.
func (v *PlaintextVault) Get(ctx context.Context, dataID string) ([]byte, storage.OffchainRecord, error) {
	record, err := v.store.GetOffchainData(ctx, dataID)
	if err != nil {
		return nil, storage.OffchainRecord{}, err
	}
	return []byte(record.Payload), record, nil
}

// GetByBlock loads every record linked to a block.
func (v *PlaintextVault) GetByBlock(ctx context.Context, blockID string) ([]Entry, error) {
	records, err := v.store.GetOffchainDataByBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, Entry{Payload: []byte(record.Payload), Record: record})
	}
	return entries, nil
}

// Erase deletes a record.
func (v *PlaintextVault) Erase(ctx context.Context, dataID string) error {
	return v.store.DeleteOffchainData(ctx, dataID)
}
