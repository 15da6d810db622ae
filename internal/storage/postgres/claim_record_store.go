package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/storage"
)

// ClaimRecordStore implements storage.ClaimRecordStore using PostgreSQL.
type ClaimRecordStore struct {
	pool *Pool
}

// NewClaimRecordStore creates a new ClaimRecordStore.
func NewClaimRecordStore(pool *Pool) *ClaimRecordStore {
	return &ClaimRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClaimRecordStore = (*ClaimRecordStore)(nil)

const claimRecordColumns = `
	tx_hash, beneficiary, token, claimed_amount,
	block_number, new_balance, claimed_at, created_at
`

// Insert adds a new claim record. Returns ErrDuplicateKey if tx_hash exists.
func (s *ClaimRecordStore) Insert(ctx context.Context, r *domain.ClaimRecord) error {
	if r == nil || r.TxHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO claim_records (` + claimRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.TxHash, r.Beneficiary, r.Token, r.ClaimedAmount,
		r.BlockNumber, r.NewBalance, r.ClaimedAt, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim record: %w", err)
	}
	return nil
}

// GetByTxHash retrieves a record by transaction hash. Returns ErrNotFound if not exists.
func (s *ClaimRecordStore) GetByTxHash(ctx context.Context, txHash string) (*domain.ClaimRecord, error) {
	query := `
		SELECT ` + claimRecordColumns + `
		FROM claim_records
		WHERE tx_hash = $1
	`

	row := s.pool.QueryRow(ctx, query, txHash)
	r, err := scanClaimRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get claim record by tx hash: %w", err)
	}
	return r, nil
}

// GetByBeneficiary retrieves all records for a beneficiary, ordered by claimed_at ASC.
func (s *ClaimRecordStore) GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT ` + claimRecordColumns + `
		FROM claim_records
		WHERE beneficiary = $1
		ORDER BY claimed_at ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("get claim records by beneficiary: %w", err)
	}
	defer rows.Close()

	return scanClaimRecords(rows)
}

// GetByToken retrieves all records for a token, ordered by claimed_at ASC.
func (s *ClaimRecordStore) GetByToken(ctx context.Context, token string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT ` + claimRecordColumns + `
		FROM claim_records
		WHERE token = $1
		ORDER BY claimed_at ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get claim records by token: %w", err)
	}
	defer rows.Close()

	return scanClaimRecords(rows)
}

// scanClaimRecord scans a single row into a ClaimRecord.
func scanClaimRecord(row pgx.Row) (*domain.ClaimRecord, error) {
	var r domain.ClaimRecord
	err := row.Scan(
		&r.TxHash, &r.Beneficiary, &r.Token, &r.ClaimedAmount,
		&r.BlockNumber, &r.NewBalance, &r.ClaimedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// scanClaimRecords scans multiple rows into a slice of ClaimRecord.
func scanClaimRecords(rows pgx.Rows) ([]*domain.ClaimRecord, error) {
	var records []*domain.ClaimRecord

	for rows.Next() {
		var r domain.ClaimRecord
		err := rows.Scan(
			&r.TxHash, &r.Beneficiary, &r.Token, &r.ClaimedAmount,
			&r.BlockNumber, &r.NewBalance, &r.ClaimedAt, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim record row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim record rows: %w", err)
	}

	return records, nil
}
