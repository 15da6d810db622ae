package vesting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"sync"
	"time"

	"token-vesting-lab/internal/amount"
	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/ledger"
	"token-vesting-lab/internal/observability"
	"token-vesting-lab/internal/storage"
	"token-vesting-lab/internal/wallet"
)

// AmountField carries one amount in both representations: Raw is the exact
// decoded decimal string, Display is the human-formatted rendering.
type AmountField struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

// Info is the structured result of a vesting query.
type Info struct {
	Token       domain.TokenInfo `json:"token"`
	Beneficiary string           `json:"beneficiary"`

	Total      AmountField `json:"total"`
	Released   AmountField `json:"released"`
	Vested     AmountField `json:"vested"`
	Releasable AmountField `json:"releasable"`
	Locked     AmountField `json:"locked"`

	Progress      int    `json:"progressPercent"`
	TimeRemaining string `json:"timeRemaining"`
	Phase         string `json:"phase"`
	StartTime     string `json:"startTime"` // ISO-8601
	EndTime       string `json:"endTime"`   // ISO-8601
}

// BatchInfo is the result of a best-effort batch query.
type BatchInfo struct {
	Schedules []*Info `json:"schedules"`
	Count     int     `json:"count"`
}

// QueryOptions configures QueryService.
type QueryOptions struct {
	Wallet wallet.Store
	Ledger ledger.Client

	// Observations, when set, receives a best-effort record of every
	// computed snapshot. Failures are logged, never surfaced.
	Observations storage.VestingObservationStore

	Logger *log.Logger
	Now    func() time.Time
}

// QueryService reads vesting schedules and derives display-ready results.
// All ledger access is read-only.
type QueryService struct {
	wallet       wallet.Store
	ledger       ledger.Client
	observations storage.VestingObservationStore
	logger       *log.Logger
	now          func() time.Time
}

// NewQueryService creates a query service.
func NewQueryService(opts QueryOptions) *QueryService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[query] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &QueryService{
		wallet:       opts.Wallet,
		ledger:       opts.Ledger,
		observations: opts.Observations,
		logger:       logger,
		now:          now,
	}
}

// GetVestingInfo resolves the beneficiary, reads the schedule for the token
// and returns the derived amounts at the current instant.
func (s *QueryService) GetVestingInfo(ctx context.Context, token string) (*Info, error) {
	info, err := s.getVestingInfo(ctx, token)
	if err != nil {
		observability.RecordQuery(string(CodeOf(err)))
		return nil, err
	}
	observability.RecordQuery("success")
	return info, nil
}

func (s *QueryService) getVestingInfo(ctx context.Context, token string) (*Info, error) {
	if !s.wallet.HasWallet() {
		return nil, newError(CodeNoWallet, token, "no wallet found; create one first", nil)
	}
	beneficiary, err := s.wallet.Address()
	if err != nil {
		return nil, newError(CodeNoWallet, token, "could not resolve wallet address", err)
	}

	if !ledger.ValidAddress(token) {
		return nil, newError(CodeInvalidTokenAddress, token, "not a valid token address", nil)
	}

	tokenInfo := s.fetchTokenInfo(ctx, token)

	schedule, err := s.ledger.Schedule(ctx, beneficiary, token)
	if err != nil {
		if errors.Is(err, ledger.ErrRPCUnavailable) {
			return nil, newError(CodeRPCFailure, token,
				fmt.Sprintf("ledger unreachable: %v", err), err)
		}
		return nil, newError(CodeScheduleFetchFailed, token,
			fmt.Sprintf("could not fetch vesting schedule: %v", err), err)
	}
	if !schedule.Exists() {
		return nil, newError(CodeScheduleNotFound, token, "no vesting schedule for this token", nil)
	}

	now := s.now().Unix()
	snap := ComputeSnapshot(schedule, now)
	s.observe(ctx, schedule, snap)

	return buildInfo(tokenInfo, beneficiary, schedule, snap)
}

// GetAllVestingInfo queries each token address in order, dropping addresses
// whose individual query failed. One bad address never aborts the batch.
func (s *QueryService) GetAllVestingInfo(ctx context.Context, tokens []string) (*BatchInfo, error) {
	if len(tokens) == 0 {
		return nil, newError(CodeInvalidInput, "", "token address list is empty", nil)
	}

	batch := &BatchInfo{Schedules: make([]*Info, 0, len(tokens))}
	dropped := 0
	for _, token := range tokens {
		info, err := s.GetVestingInfo(ctx, token)
		if err != nil {
			dropped++
			s.logger.Printf("dropping %s from batch: %v", token, err)
			continue
		}
		batch.Schedules = append(batch.Schedules, info)
	}
	batch.Count = len(batch.Schedules)

	observability.RecordBatchQuery(dropped)
	return batch, nil
}

// fetchTokenInfo reads name, symbol and decimals concurrently. The three
// calls are independent and read-only; any failure falls back to the
// sentinel defaults and is never fatal.
func (s *QueryService) fetchTokenInfo(ctx context.Context, token string) domain.TokenInfo {
	info := domain.NewTokenInfo(token)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if name, err := s.ledger.TokenName(ctx, token); err == nil && name != "" {
			info.Name = name
		}
	}()
	go func() {
		defer wg.Done()
		if symbol, err := s.ledger.TokenSymbol(ctx, token); err == nil && symbol != "" {
			info.Symbol = symbol
		}
	}()
	go func() {
		defer wg.Done()
		if decimals, err := s.ledger.TokenDecimals(ctx, token); err == nil {
			info.Decimals = decimals
		}
	}()

	wg.Wait()
	return info
}

// observe writes the snapshot to the observation store, best-effort.
func (s *QueryService) observe(ctx context.Context, schedule *domain.VestingSchedule, snap Snapshot) {
	if s.observations == nil {
		return
	}
	obs := &domain.VestingObservation{
		Beneficiary: schedule.Beneficiary,
		Token:       schedule.Token,
		ObservedAt:  snap.ObservedAt,
		Vested:      snap.Vested.String(),
		Releasable:  snap.Releasable.String(),
		Locked:      snap.Locked.String(),
		Progress:    snap.Progress,
	}
	if err := s.observations.Insert(ctx, obs); err != nil {
		observability.RecordObservationError()
		s.logger.Printf("observation write failed for %s: %v", schedule.Token, err)
	}
}

// buildInfo formats every amount through the codec and assembles the result.
func buildInfo(tokenInfo domain.TokenInfo, beneficiary string, schedule *domain.VestingSchedule, snap Snapshot) (*Info, error) {
	info := &Info{
		Token:         tokenInfo,
		Beneficiary:   beneficiary,
		Progress:      snap.Progress,
		TimeRemaining: snap.TimeRemaining,
		Phase:         snap.Phase.String(),
		StartTime:     isoTime(schedule.StartTime),
		EndTime:       isoTime(schedule.EndTime),
	}

	type field struct {
		name string
		raw  *big.Int
		dst  *AmountField
	}
	fields := []field{
		{"total", schedule.TotalAmount, &info.Total},
		{"released", schedule.ReleasedAmount, &info.Released},
		{"vested", snap.Vested, &info.Vested},
		{"releasable", snap.Releasable, &info.Releasable},
		{"locked", snap.Locked, &info.Locked},
	}
	for _, f := range fields {
		formatted, err := formatAmount(f.raw, tokenInfo.Decimals)
		if err != nil {
			return nil, newError(CodeScheduleFetchFailed, tokenInfo.Address,
				fmt.Sprintf("malformed %s amount on schedule: %v", f.name, err), err)
		}
		*f.dst = formatted
	}

	return info, nil
}

// formatAmount decodes a base-unit amount and renders both representations.
func formatAmount(raw *big.Int, decimals int) (AmountField, error) {
	dec, err := amount.Decode(raw, decimals)
	if err != nil {
		return AmountField{}, err
	}
	return AmountField{Raw: raw.String(), Display: amount.Format(dec)}, nil
}
