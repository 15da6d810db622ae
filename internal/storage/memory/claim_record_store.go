package memory

import (
	"context"
	"sort"
	"sync"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/storage"
)

// ClaimRecordStore is an in-memory implementation of storage.ClaimRecordStore.
type ClaimRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClaimRecord // keyed by tx_hash
}

// NewClaimRecordStore creates a new in-memory claim record store.
func NewClaimRecordStore() *ClaimRecordStore {
	return &ClaimRecordStore{
		data: make(map[string]*domain.ClaimRecord),
	}
}

// Compile-time interface check.
var _ storage.ClaimRecordStore = (*ClaimRecordStore)(nil)

// Insert adds a new claim record. Returns ErrDuplicateKey if tx_hash exists.
func (s *ClaimRecordStore) Insert(_ context.Context, r *domain.ClaimRecord) error {
	if r == nil || r.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.TxHash] = &copy
	return nil
}

// GetByTxHash retrieves a record by transaction hash. Returns ErrNotFound if not exists.
func (s *ClaimRecordStore) GetByTxHash(_ context.Context, txHash string) (*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[txHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByBeneficiary retrieves all records for a beneficiary, ordered by claimed_at ASC.
func (s *ClaimRecordStore) GetByBeneficiary(_ context.Context, beneficiary string) ([]*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimRecord
	for _, r := range s.data {
		if r.Beneficiary == beneficiary {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortByClaimedAt(result)
	return result, nil
}

// GetByToken retrieves all records for a token, ordered by claimed_at ASC.
func (s *ClaimRecordStore) GetByToken(_ context.Context, token string) ([]*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimRecord
	for _, r := range s.data {
		if r.Token == token {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortByClaimedAt(result)
	return result, nil
}

func sortByClaimedAt(records []*domain.ClaimRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ClaimedAt != records[j].ClaimedAt {
			return records[i].ClaimedAt < records[j].ClaimedAt
		}
		return records[i].TxHash < records[j].TxHash
	})
}
