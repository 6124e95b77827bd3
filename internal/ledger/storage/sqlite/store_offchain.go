package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/chainlog/internal/ledger/storage"
)

// CreateOffchainData inserts an off-chain payload record.
func (s *Store) CreateOffchainData(ctx context.Context, record storage.OffchainRecord) (storage.OffchainRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.OffchainRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.OffchainRecord{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.DataID) == "" {
		return storage.OffchainRecord{}, fmt.Errorf("data id is required")
	}
	if strings.TrimSpace(record.BlockID) == "" {
		return storage.OffchainRecord{}, fmt.Errorf("block id is required")
	}
	if record.Payload == "" {
		return storage.OffchainRecord{}, fmt.Errorf("payload is required")
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return storage.OffchainRecord{}, err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO offchain_data (data_id, block_id, data_type, payload, encrypted, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.DataID, record.BlockID, record.DataType, record.Payload,
		boolToInt(record.Encrypted), metadataJSON, toMillis(record.CreatedAt),
	); err != nil {
		return storage.OffchainRecord{}, fmt.Errorf("insert offchain data: %w", err)
	}

	return record, nil
}

// GetOffchainData loads one off-chain record by id.
func (s *Store) GetOffchainData(ctx context.Context, dataID string) (storage.OffchainRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.OffchainRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.OffchainRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, offchainSelect+` WHERE data_id = ?`, dataID)
	record, err := scanOffchain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.OffchainRecord{}, storage.ErrNotFound
		}
		return storage.OffchainRecord{}, fmt.Errorf("get offchain data: %w", err)
	}
	return record, nil
}

// GetOffchainDataByBlock lists off-chain records linked to a block.
func (s *Store) GetOffchainDataByBlock(ctx context.Context, blockID string) ([]storage.OffchainRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, offchainSelect+` WHERE block_id = ? ORDER BY created_at, data_id`, blockID)
	if err != nil {
		return nil, fmt.Errorf("list offchain data: %w", err)
	}
	defer rows.Close()

	var records []storage.OffchainRecord
	for rows.Next() {
		record, err := scanOffchain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offchain data: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read offchain data: %w", err)
	}
	return records, nil
}

// DeleteOffchainData erases an off-chain record. The linked block and its
// payload digest remain untouched, by design: erasure must not invalidate
// the chain.
func (s *Store) DeleteOffchainData(ctx context.Context, dataID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM offchain_data WHERE data_id = ?`, dataID)
	if err != nil {
		return fmt.Errorf("delete offchain data: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const offchainSelect = `
SELECT data_id, block_id, data_type, payload, encrypted, metadata_json, created_at
FROM offchain_data`

func scanOffchain(row rowScanner) (storage.OffchainRecord, error) {
	var record storage.OffchainRecord
	var encrypted int
	var createdAt int64
	var metadataJSON string

	if err := row.Scan(&record.DataID, &record.BlockID, &record.DataType,
		&record.Payload, &encrypted, &metadataJSON, &createdAt); err != nil {
		return storage.OffchainRecord{}, err
	}

	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return storage.OffchainRecord{}, err
	}

	record.Encrypted = encrypted != 0
	record.Metadata = metadata
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
