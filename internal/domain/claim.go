package domain

// ClaimRecord is one confirmed release, as journaled after on-chain
// confirmation. Corresponds to the claim_records table in PostgreSQL.
// Records are append-only: a claim is a completed side effect, never retried.
type ClaimRecord struct {
	TxHash        string `json:"txHash"` // PRIMARY KEY, 0x-prefixed transaction hash
	Beneficiary   string `json:"beneficiary"`
	Token         string `json:"token"`
	ClaimedAmount string `json:"claimedAmount"` // base-unit integer, decimal string
	BlockNumber   uint64 `json:"blockNumber"`
	NewBalance    string `json:"newBalance"` // base-unit integer, decimal string
	ClaimedAt     int64  `json:"claimedAt"`  // unix seconds
	CreatedAt     int64  `json:"createdAt"`  // unix seconds
}
