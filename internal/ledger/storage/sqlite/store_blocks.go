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

// AppendBlock inserts a finalized block row. The UNIQUE (chain_id, height)
// constraint is the storage-side guard against concurrent appends racing to
// the same height; collisions surface as ErrDuplicateHeight.
func (s *Store) AppendBlock(ctx context.Context, record storage.BlockRecord) (storage.BlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BlockRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BlockRecord{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return storage.BlockRecord{}, fmt.Errorf("block id is required")
	}
	if strings.TrimSpace(record.ChainID) == "" {
		return storage.BlockRecord{}, fmt.Errorf("chain id is required")
	}
	if strings.TrimSpace(record.CurrentDigest) == "" {
		return storage.BlockRecord{}, fmt.Errorf("block digest is required")
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return storage.BlockRecord{}, err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO blocks (id, chain_id, height, timestamp, previous_digest, current_digest,
                    signature, nonce, payload_digest, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.ChainID, int64(record.Height), toMillis(record.Timestamp),
		record.PreviousDigest, record.CurrentDigest, record.Signature, record.Nonce,
		record.PayloadDigest, metadataJSON, toMillis(record.CreatedAt),
	); err != nil {
		if isConstraintError(err) {
			return storage.BlockRecord{}, storage.ErrDuplicateHeight
		}
		return storage.BlockRecord{}, fmt.Errorf("insert block: %w", err)
	}

	return record, nil
}

// GetBlockByID loads one block row.
func (s *Store) GetBlockByID(ctx context.Context, blockID string) (storage.BlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BlockRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BlockRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, blockSelect+` WHERE id = ?`, blockID)
	record, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BlockRecord{}, storage.ErrNotFound
		}
		return storage.BlockRecord{}, fmt.Errorf("get block: %w", err)
	}
	return record, nil
}

// GetBlockByHeight loads the block at a height within a chain.
func (s *Store) GetBlockByHeight(ctx context.Context, chainID string, height uint64) (storage.BlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BlockRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BlockRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, blockSelect+` WHERE chain_id = ? AND height = ?`, chainID, int64(height))
	record, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BlockRecord{}, storage.ErrNotFound
		}
		return storage.BlockRecord{}, fmt.Errorf("get block by height: %w", err)
	}
	return record, nil
}

// ListBlocks returns every block of a chain in height order.
func (s *Store) ListBlocks(ctx context.Context, chainID string) ([]storage.BlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, blockSelect+` WHERE chain_id = ? ORDER BY height`, chainID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var records []storage.BlockRecord
	for rows.Next() {
		record, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read blocks: %w", err)
	}
	return records, nil
}

const blockSelect = `
SELECT id, chain_id, height, timestamp, previous_digest, current_digest,
       signature, nonce, payload_digest, metadata_json, created_at
FROM blocks`

func scanBlock(row rowScanner) (storage.BlockRecord, error) {
	var record storage.BlockRecord
	var height, timestamp, createdAt int64
	var metadataJSON string

	if err := row.Scan(&record.ID, &record.ChainID, &height, &timestamp,
		&record.PreviousDigest, &record.CurrentDigest, &record.Signature,
		&record.Nonce, &record.PayloadDigest, &metadataJSON, &createdAt); err != nil {
		return storage.BlockRecord{}, err
	}

	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return storage.BlockRecord{}, err
	}

	record.Height = uint64(height)
	record.Timestamp = fromMillis(timestamp)
	record.Metadata = metadata
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
