package domain

import "math/big"

// VestingSchedule is the raw on-chain vesting record for one
// (beneficiary, token) pair. Amounts are base-unit integers; timestamps are
// seconds since epoch. The record is read-only from this engine's perspective:
// it changes only through a confirmed on-chain release, observed by re-querying.
//
// Invariants: EndTime >= StartTime and 0 <= ReleasedAmount <= TotalAmount.
// A schedule with TotalAmount == 0 does not exist.
type VestingSchedule struct {
	Beneficiary    string
	Token          string
	TotalAmount    *big.Int
	ReleasedAmount *big.Int
	StartTime      int64
	EndTime        int64
}

// Exists reports whether the schedule represents a real on-chain record.
// The vesting manager returns an all-zero tuple for unknown pairs.
func (s *VestingSchedule) Exists() bool {
	return s != nil && s.TotalAmount != nil && s.TotalAmount.Sign() > 0
}
