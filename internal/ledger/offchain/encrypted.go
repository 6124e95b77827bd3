package offchain

import (
	"context"
	"fmt"

	"github.com/louisbranch/chainlog/internal/ledger/encryption"
	"github.com/louisbranch/chainlog/internal/ledger/storage"
)

// EncryptedVault seals payloads with authenticated encryption before they
// reach storage.
type EncryptedVault struct {
	store     storage.OffchainStore
	encryptor *encryption.Encryptor
}

// NewEncryptedVault wires an encryptor in front of an off-chain store. Both
// are required; a missing encryptor fails here instead of degrading to
// plaintext later.
func NewEncryptedVault(store storage.OffchainStore, encryptor *encryption.Encryptor) (*EncryptedVault, error) {
	if store == nil {
		return nil, fmt.Errorf("offchain store is required")
	}
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	return &EncryptedVault{store: store, encryptor: encryptor}, nil
}

// Put seals the payload and stores the ciphertext blob.
func (v *EncryptedVault) Put(ctx context.Context, blockID, dataType string, payload []byte, metadata map[string]string) (storage.OffchainRecord, error) {
	record, err := newRecord(blockID, dataType, metadata)
	if err != nil {
		return storage.OffchainRecord{}, err
	}

	blob, err := v.encryptor.Encrypt(payload)
	if err != nil {
		return storage.OffchainRecord{}, fmt.Errorf("seal payload: %w", err)
	}
	record.Payload = blob
	record.Encrypted = true

	return v.store.CreateOffchainData(ctx, record)
}

// Get loads and opens one record. Tampered ciphertext surfaces as an
// authentication failure, distinct from not-found.
func (v *EncryptedVault) Get(ctx context.Context, dataID string) ([]byte, storage.OffchainRecord, error) {
	record, err := v.store.GetOffchainData(ctx, dataID)
	if err != nil {
		return nil, storage.OffchainRecord{}, err
	}
	plaintext, err := v.encryptor.Decrypt(record.Payload)
	if err != nil {
		return nil, storage.OffchainRecord{}, err
	}
	return plaintext, record, nil
}

// GetByBlock loads and opens every record linked to a block.
func (v *EncryptedVault) GetByBlock(ctx context.Context, blockID string) ([]Entry, error) {
	records, err := v.store.GetOffchainDataByBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		plaintext, err := v.encryptor.Decrypt(record.Payload)
		if err != nil {
			return nil, fmt.Errorf("open payload %s: %w", record.DataID, err)
		}
		entries = append(entries, Entry{Payload: plaintext, Record: record})
	}
	return entries, nil
}

// Erase deletes a record; the chain keeps only the payload digest.
func (v *EncryptedVault) Erase(ctx context.Context, dataID string) error {
	return v.store.DeleteOffchainData(ctx, dataID)
}
