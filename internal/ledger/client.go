// Package ledger talks to the chain: contract reads over JSON-RPC,
// release-transaction submission, and confirmation tracking.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"token-vesting-lab/internal/domain"
)

// Client defines the ledger collaborator consumed by the vesting services.
//
// The three metadata reads are independent and side-effect-free; callers may
// issue them concurrently and tolerate individual failures.
type Client interface {
	// TokenName reads name() from the token contract.
	TokenName(ctx context.Context, token string) (string, error)

	// TokenSymbol reads symbol() from the token contract.
	TokenSymbol(ctx context.Context, token string) (string, error)

	// TokenDecimals reads decimals() from the token contract.
	TokenDecimals(ctx context.Context, token string) (int, error)

	// Schedule reads the raw vesting schedule for (beneficiary, token) from
	// the vesting manager. An unknown pair returns an all-zero schedule,
	// never an error.
	Schedule(ctx context.Context, beneficiary, token string) (*domain.VestingSchedule, error)

	// Balance reads balanceOf(account) from the token contract.
	Balance(ctx context.Context, account, token string) (*big.Int, error)

	// SubmitRelease signs and submits release(token) from the key's own
	// account. Exactly one submission per call; the transport never retries.
	SubmitRelease(ctx context.Context, key *btcec.PrivateKey, token string) (string, error)

	// AwaitReceipt blocks until the transaction is mined. No client-side
	// deadline beyond ctx; confirmation latency belongs to the network.
	AwaitReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// Receipt is the confirmation record of a mined transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Status      uint64 // 1 = success, 0 = reverted
}

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a 0x-prefixed 40-hex-digit address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// ErrReverted marks an on-chain revert, as opposed to a transport failure.
var ErrReverted = errors.New("execution reverted")

// ErrRPCUnavailable marks a transport-level failure that exhausted the retry
// budget: the node never answered. Distinct from errors the node returned.
var ErrRPCUnavailable = errors.New("rpc unavailable")

// IsRevert classifies an error as a contract revert. Node implementations
// signal reverts through the JSON-RPC error message, so the check is a
// substring match in addition to the sentinel.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrReverted) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted") ||
		strings.Contains(strings.ToLower(err.Error()), "revert")
}
