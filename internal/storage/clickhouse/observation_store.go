package clickhouse

import (
	"context"
	"fmt"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/storage"
)

// VestingObservationStore implements storage.VestingObservationStore using ClickHouse.
type VestingObservationStore struct {
	conn *Conn
}

// NewVestingObservationStore creates a new VestingObservationStore.
func NewVestingObservationStore(conn *Conn) *VestingObservationStore {
	return &VestingObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VestingObservationStore = (*VestingObservationStore)(nil)

// Insert adds a single observation. Returns ErrDuplicateKey if the
// (beneficiary, token, observed_at) key exists.
func (s *VestingObservationStore) Insert(ctx context.Context, o *domain.VestingObservation) error {
	if o == nil || o.Beneficiary == "" || o.Token == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.VestingObservation{o})
}

// InsertBulk adds multiple observations. Fails entire batch on any duplicate.
func (s *VestingObservationStore) InsertBulk(ctx context.Context, observations []*domain.VestingObservation) error {
	if len(observations) == 0 {
		return nil
	}

	// MergeTree does not enforce uniqueness, so duplicates are rejected
	// before insert: first within the batch, then against existing rows.
	type key struct {
		beneficiary string
		token       string
		observedAt  int64
	}
	seen := make(map[key]struct{})
	for _, o := range observations {
		if o == nil || o.Beneficiary == "" || o.Token == "" {
			return storage.ErrInvalidInput
		}
		k := key{o.Beneficiary, o.Token, o.ObservedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, o := range observations {
		exists, err := s.exists(ctx, o.Beneficiary, o.Token, o.ObservedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO vesting_observations (
			beneficiary, token, observed_at, vested, releasable, locked, progress
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range observations {
		err = batch.Append(
			o.Beneficiary, o.Token, uint64(o.ObservedAt),
			o.Vested, o.Releasable, o.Locked, uint8(o.Progress),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all observations for a pair, ordered by observed_at ASC.
func (s *VestingObservationStore) GetByToken(ctx context.Context, beneficiary, token string) ([]*domain.VestingObservation, error) {
	query := `
		SELECT beneficiary, token, observed_at, vested, releasable, locked, progress
		FROM vesting_observations
		WHERE beneficiary = ? AND token = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, beneficiary, token)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations for a pair within [start, end] (inclusive).
func (s *VestingObservationStore) GetByTimeRange(ctx context.Context, beneficiary, token string, start, end int64) ([]*domain.VestingObservation, error) {
	query := `
		SELECT beneficiary, token, observed_at, vested, releasable, locked, progress
		FROM vesting_observations
		WHERE beneficiary = ? AND token = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, beneficiary, token, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *VestingObservationStore) exists(ctx context.Context, beneficiary, token string, observedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM vesting_observations
		WHERE beneficiary = ? AND token = ? AND observed_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, beneficiary, token, uint64(observedAt)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.VestingObservation, error) {
	var observations []*domain.VestingObservation

	for rows.Next() {
		var o domain.VestingObservation
		var observedAt uint64
		var progress uint8

		err := rows.Scan(
			&o.Beneficiary, &o.Token, &observedAt,
			&o.Vested, &o.Releasable, &o.Locked, &progress,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.ObservedAt = int64(observedAt)
		o.Progress = int(progress)
		observations = append(observations, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return observations, nil
}
