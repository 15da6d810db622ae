package storage

import (
	"context"

	"token-vesting-lab/internal/domain"
)

// ClaimRecordStore provides access to claim_records storage, the journal of
// confirmed release transactions.
type ClaimRecordStore interface {
	// Insert adds a new claim record. Returns ErrDuplicateKey if tx_hash exists.
	Insert(ctx context.Context, r *domain.ClaimRecord) error

	// GetByTxHash retrieves a record by transaction hash. Returns ErrNotFound if not exists.
	GetByTxHash(ctx context.Context, txHash string) (*domain.ClaimRecord, error)

	// GetByBeneficiary retrieves all records for a beneficiary, ordered by claimed_at ASC.
	GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.ClaimRecord, error)

	// GetByToken retrieves all records for a token, ordered by claimed_at ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.ClaimRecord, error)
}

// VestingObservationStore provides access to vesting_observations storage,
// the append-only timeseries of computed snapshots.
type VestingObservationStore interface {
	// Insert adds a single observation. Returns ErrDuplicateKey if
	// (beneficiary, token, observed_at) exists.
	Insert(ctx context.Context, o *domain.VestingObservation) error

	// InsertBulk adds multiple observations. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, observations []*domain.VestingObservation) error

	// GetByToken retrieves all observations for a (beneficiary, token) pair,
	// ordered by observed_at ASC.
	GetByToken(ctx context.Context, beneficiary, token string) ([]*domain.VestingObservation, error)

	// GetByTimeRange retrieves observations for a pair within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, beneficiary, token string, start, end int64) ([]*domain.VestingObservation, error)
}
