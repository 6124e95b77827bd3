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

// CreateChain inserts a chain metadata row.
func (s *Store) CreateChain(ctx context.Context, record storage.ChainRecord) (storage.ChainRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChainRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ChainRecord{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return storage.ChainRecord{}, fmt.Errorf("chain id is required")
	}
	if strings.TrimSpace(record.Name) == "" {
		return storage.ChainRecord{}, fmt.Errorf("chain name is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO chains (id, name, description, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.Name, record.Description, boolToInt(record.Active),
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt),
	); err != nil {
		return storage.ChainRecord{}, fmt.Errorf("insert chain: %w", err)
	}

	return record, nil
}

// GetChain loads a chain row by id.
func (s *Store) GetChain(ctx context.Context, chainID string) (storage.ChainRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChainRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ChainRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, description, active, created_at, updated_at
FROM chains WHERE id = ?`, chainID)

	record, err := scanChain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ChainRecord{}, storage.ErrNotFound
		}
		return storage.ChainRecord{}, fmt.Errorf("get chain: %w", err)
	}
	return record, nil
}

// ListChains returns every chain row ordered by creation time.
func (s *Store) ListChains(ctx context.Context) ([]storage.ChainRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, description, active, created_at, updated_at
FROM chains ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	var records []storage.ChainRecord
	for rows.Next() {
		record, err := scanChain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chains: %w", err)
	}
	return records, nil
}

// SetChainActive flips the active flag of a chain.
func (s *Store) SetChainActive(ctx context.Context, chainID string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE chains SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), toMillis(time.Now()), chainID)
	if err != nil {
		return fmt.Errorf("update chain: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChain(row rowScanner) (storage.ChainRecord, error) {
	var record storage.ChainRecord
	var active int
	var createdAt, updatedAt int64

	if err := row.Scan(&record.ID, &record.Name, &record.Description, &active, &createdAt, &updatedAt); err != nil {
		return storage.ChainRecord{}, err
	}
	record.Active = active != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
