package memory

import (
	"context"
	"sort"
	"sync"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/storage"
)

// obsKey identifies one observation row.
type obsKey struct {
	beneficiary string
	token       string
	observedAt  int64
}

// VestingObservationStore is an in-memory implementation of storage.VestingObservationStore.
type VestingObservationStore struct {
	mu   sync.RWMutex
	data map[obsKey]*domain.VestingObservation
}

// NewVestingObservationStore creates a new in-memory observation store.
func NewVestingObservationStore() *VestingObservationStore {
	return &VestingObservationStore{
		data: make(map[obsKey]*domain.VestingObservation),
	}
}

// Compile-time interface check.
var _ storage.VestingObservationStore = (*VestingObservationStore)(nil)

// Insert adds a single observation. Returns ErrDuplicateKey if the
// (beneficiary, token, observed_at) key exists.
func (s *VestingObservationStore) Insert(_ context.Context, o *domain.VestingObservation) error {
	if o == nil || o.Beneficiary == "" || o.Token == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := obsKey{o.Beneficiary, o.Token, o.ObservedAt}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *o
	s.data[k] = &copy
	return nil
}

// InsertBulk adds multiple observations. Fails entire batch on any duplicate.
func (s *VestingObservationStore) InsertBulk(_ context.Context, observations []*domain.VestingObservation) error {
	if len(observations) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[obsKey]struct{}, len(observations))
	for _, o := range observations {
		if o == nil || o.Beneficiary == "" || o.Token == "" {
			return storage.ErrInvalidInput
		}
		k := obsKey{o.Beneficiary, o.Token, o.ObservedAt}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, o := range observations {
		copy := *o
		s.data[obsKey{o.Beneficiary, o.Token, o.ObservedAt}] = &copy
	}

	return nil
}

// GetByToken retrieves all observations for a pair, ordered by observed_at ASC.
func (s *VestingObservationStore) GetByToken(_ context.Context, beneficiary, token string) ([]*domain.VestingObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VestingObservation
	for _, o := range s.data {
		if o.Beneficiary == beneficiary && o.Token == token {
			copy := *o
			result = append(result, &copy)
		}
	}

	sortByObservedAt(result)
	return result, nil
}

// GetByTimeRange retrieves observations for a pair within [start, end] (inclusive).
func (s *VestingObservationStore) GetByTimeRange(_ context.Context, beneficiary, token string, start, end int64) ([]*domain.VestingObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VestingObservation
	for _, o := range s.data {
		if o.Beneficiary == beneficiary && o.Token == token &&
			o.ObservedAt >= start && o.ObservedAt <= end {
			copy := *o
			result = append(result, &copy)
		}
	}

	sortByObservedAt(result)
	return result, nil
}

func sortByObservedAt(observations []*domain.VestingObservation) {
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].ObservedAt < observations[j].ObservedAt
	})
}
