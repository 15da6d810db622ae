package vesting

import (
	"math/big"

	"token-vesting-lab/internal/domain"
)

// Snapshot holds the amounts derived from one schedule at one instant.
// It is never persisted as-is: recomputing from the same schedule and the
// same instant yields an identical snapshot.
type Snapshot struct {
	Phase         Phase
	Vested        *big.Int
	Releasable    *big.Int
	Locked        *big.Int
	Progress      int // percent, [0, 100]
	TimeRemaining string
	ObservedAt    int64 // epoch seconds
}

// ComputeSnapshot derives all snapshot fields from the schedule at `now`.
func ComputeSnapshot(s *domain.VestingSchedule, now int64) Snapshot {
	return Snapshot{
		Phase:         PhaseAt(s, now),
		Vested:        VestedAt(s, now),
		Releasable:    ReleasableAt(s, now),
		Locked:        LockedAt(s, now),
		Progress:      ProgressAt(s, now),
		TimeRemaining: TimeRemainingLabel(s, now),
		ObservedAt:    now,
	}
}
