// Package stub implements ledger.Client for testing.
package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/ledger"
)

// ErrMetadataUnavailable is returned for tokens with no stubbed metadata
// when FailUnknownMetadata is set.
var ErrMetadataUnavailable = errors.New("metadata unavailable")

// Client implements ledger.Client backed by maps.
type Client struct {
	Names    map[string]string
	Symbols  map[string]string
	Decimals map[string]int
	// FailUnknownMetadata makes metadata reads for unknown tokens fail
	// instead of returning zero values.
	FailUnknownMetadata bool

	Schedules   map[string]*domain.VestingSchedule // keyed by beneficiary|token
	ScheduleErr error

	Balances map[string]*big.Int // keyed by account|token

	SubmitErr     error
	ReceiptStatus uint64 // status for every receipt; 1 by default

	// Call recording for assertion. MetadataCalls is atomic: the query
	// service issues the three metadata reads concurrently.
	SubmitCalls   []string // token per SubmitRelease call
	MetadataCalls atomic.Int64
}

// NewClient creates an empty stub ledger.
func NewClient() *Client {
	return &Client{
		Names:         make(map[string]string),
		Symbols:       make(map[string]string),
		Decimals:      make(map[string]int),
		Schedules:     make(map[string]*domain.VestingSchedule),
		Balances:      make(map[string]*big.Int),
		ReceiptStatus: 1,
	}
}

// Compile-time interface check.
var _ ledger.Client = (*Client)(nil)

func key(a, b string) string { return a + "|" + b }

// AddToken registers token metadata.
func (c *Client) AddToken(token, name, symbol string, decimals int) {
	c.Names[token] = name
	c.Symbols[token] = symbol
	c.Decimals[token] = decimals
}

// AddSchedule registers a schedule for (beneficiary, token).
func (c *Client) AddSchedule(s *domain.VestingSchedule) {
	c.Schedules[key(s.Beneficiary, s.Token)] = s
}

// SetBalance registers a token balance for an account.
func (c *Client) SetBalance(account, token string, balance *big.Int) {
	c.Balances[key(account, token)] = balance
}

// TokenName returns the stubbed name.
func (c *Client) TokenName(_ context.Context, token string) (string, error) {
	c.MetadataCalls.Add(1)
	name, ok := c.Names[token]
	if !ok && c.FailUnknownMetadata {
		return "", ErrMetadataUnavailable
	}
	return name, nil
}

// TokenSymbol returns the stubbed symbol.
func (c *Client) TokenSymbol(_ context.Context, token string) (string, error) {
	c.MetadataCalls.Add(1)
	symbol, ok := c.Symbols[token]
	if !ok && c.FailUnknownMetadata {
		return "", ErrMetadataUnavailable
	}
	return symbol, nil
}

// TokenDecimals returns the stubbed decimals.
func (c *Client) TokenDecimals(_ context.Context, token string) (int, error) {
	c.MetadataCalls.Add(1)
	decimals, ok := c.Decimals[token]
	if !ok && c.FailUnknownMetadata {
		return 0, ErrMetadataUnavailable
	}
	return decimals, nil
}

// Schedule returns the stubbed schedule, or an all-zero schedule for
// unknown pairs the way the real contract does.
func (c *Client) Schedule(_ context.Context, beneficiary, token string) (*domain.VestingSchedule, error) {
	if c.ScheduleErr != nil {
		return nil, c.ScheduleErr
	}
	s, ok := c.Schedules[key(beneficiary, token)]
	if !ok {
		return &domain.VestingSchedule{
			Beneficiary:    beneficiary,
			Token:          token,
			TotalAmount:    big.NewInt(0),
			ReleasedAmount: big.NewInt(0),
		}, nil
	}
	copied := *s
	copied.TotalAmount = new(big.Int).Set(s.TotalAmount)
	copied.ReleasedAmount = new(big.Int).Set(s.ReleasedAmount)
	return &copied, nil
}

// Balance returns the stubbed balance, zero for unknown accounts.
func (c *Client) Balance(_ context.Context, account, token string) (*big.Int, error) {
	b, ok := c.Balances[key(account, token)]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(b), nil
}

// SubmitRelease records the call and simulates a full release of the
// currently releasable amount for the signer's schedule.
func (c *Client) SubmitRelease(_ context.Context, signing *btcec.PrivateKey, token string) (string, error) {
	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}
	c.SubmitCalls = append(c.SubmitCalls, token)
	return fmt.Sprintf("0x%064x", len(c.SubmitCalls)), nil
}

// AwaitReceipt returns a receipt with the configured status.
func (c *Client) AwaitReceipt(_ context.Context, txHash string) (*ledger.Receipt, error) {
	return &ledger.Receipt{
		TxHash:      txHash,
		BlockNumber: 1_234_567,
		Status:      c.ReceiptStatus,
	}, nil
}
