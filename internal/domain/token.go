package domain

// Sentinel values used when token metadata calls fail.
// Metadata is decorative; a missing name or symbol never fails a query.
const (
	UnknownName     = "Unknown"
	UnknownSymbol   = "UNKNOWN"
	DefaultDecimals = 18
)

// TokenInfo represents ERC-20 style token metadata read from the token contract.
// Immutable once constructed; lifetime is a single query.
type TokenInfo struct {
	Address  string // 0x-prefixed hex contract address
	Name     string
	Symbol   string
	Decimals int // fractional digits of the base unit
}

// NewTokenInfo returns TokenInfo with sentinel defaults for the given address.
// Callers overwrite fields that were fetched successfully.
func NewTokenInfo(address string) TokenInfo {
	return TokenInfo{
		Address:  address,
		Name:     UnknownName,
		Symbol:   UnknownSymbol,
		Decimals: DefaultDecimals,
	}
}
