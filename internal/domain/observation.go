package domain

// VestingObservation is one computed snapshot of a schedule, recorded each
// time a query runs. Amounts are base-unit decimal strings so the analytics
// store never loses precision.
type VestingObservation struct {
	Beneficiary string
	Token       string
	ObservedAt  int64 // unix seconds

	Vested     string
	Releasable string
	Locked     string
	Progress   int
}
