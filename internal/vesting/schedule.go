// Package vesting implements the vesting computation and claim engine:
// pure schedule math over time plus the query and claim orchestration
// services that drive it against the ledger and wallet collaborators.
package vesting

import (
	"fmt"
	"math/big"
	"time"

	"token-vesting-lab/internal/domain"
)

// Phase is the position of a schedule relative to a reference instant.
// A schedule deterministically occupies exactly one phase given `now`.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseVesting
	PhaseFullyVested
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NOT_STARTED"
	case PhaseVesting:
		return "VESTING"
	case PhaseFullyVested:
		return "FULLY_VESTED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const secondsPerDay = 86400

// PhaseAt returns the schedule's phase at the given instant.
// A zero-duration schedule (EndTime == StartTime) is fully vested as soon as
// now >= StartTime; it never divides by zero in the vesting branch.
func PhaseAt(s *domain.VestingSchedule, now int64) Phase {
	if s.EndTime <= s.StartTime {
		if now >= s.StartTime {
			return PhaseFullyVested
		}
		return PhaseNotStarted
	}
	switch {
	case now <= s.StartTime:
		return PhaseNotStarted
	case now >= s.EndTime:
		return PhaseFullyVested
	default:
		return PhaseVesting
	}
}

// VestedAt computes the vested amount at `now` in exact integer arithmetic:
// totalAmount * (now - startTime) / (endTime - startTime), truncating.
// The result is monotonically non-decreasing in now and bounded by
// [0, TotalAmount].
func VestedAt(s *domain.VestingSchedule, now int64) *big.Int {
	switch PhaseAt(s, now) {
	case PhaseNotStarted:
		return big.NewInt(0)
	case PhaseFullyVested:
		return new(big.Int).Set(s.TotalAmount)
	}

	elapsed := big.NewInt(now - s.StartTime)
	duration := big.NewInt(s.EndTime - s.StartTime)

	vested := new(big.Int).Mul(s.TotalAmount, elapsed)
	return vested.Quo(vested, duration)
}

// ReleasableAt computes vested minus already-released, clamped at zero.
// ReleasedAmount > vested can only come from a stale read; the clamp keeps it
// a data-consistency condition for the caller, not a crash.
func ReleasableAt(s *domain.VestingSchedule, now int64) *big.Int {
	releasable := VestedAt(s, now)
	released := s.ReleasedAmount
	if released == nil {
		released = big.NewInt(0)
	}
	releasable.Sub(releasable, released)
	if releasable.Sign() < 0 {
		releasable.SetInt64(0)
	}
	return releasable
}

// LockedAt computes the not-yet-vested remainder.
func LockedAt(s *domain.VestingSchedule, now int64) *big.Int {
	locked := new(big.Int).Set(s.TotalAmount)
	return locked.Sub(locked, VestedAt(s, now))
}

// ProgressAt returns the integer floor of 100 * elapsed / duration,
// clamped to [0, 100].
func ProgressAt(s *domain.VestingSchedule, now int64) int {
	if s.EndTime <= s.StartTime {
		if now >= s.StartTime {
			return 100
		}
		return 0
	}
	if now <= s.StartTime {
		return 0
	}
	if now >= s.EndTime {
		return 100
	}
	return int(100 * (now - s.StartTime) / (s.EndTime - s.StartTime))
}

// TimeRemainingLabel renders the human-readable time position of the schedule.
// Day counts use ceiling division: a partial day counts as a day.
func TimeRemainingLabel(s *domain.VestingSchedule, now int64) string {
	switch PhaseAt(s, now) {
	case PhaseFullyVested:
		return "Fully vested"
	case PhaseNotStarted:
		days := ceilDiv(s.StartTime-now, secondsPerDay)
		return fmt.Sprintf("Starts in %d days", days)
	}

	days := ceilDiv(s.EndTime-now, secondsPerDay)
	if days > 30 {
		return fmt.Sprintf("%d months remaining", days/30)
	}
	return fmt.Sprintf("%d days remaining", days)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// isoTime formats an epoch-second timestamp as ISO-8601 UTC.
func isoTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
