package vesting_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/ledger"
	ledgerstub "token-vesting-lab/internal/ledger/stub"
	"token-vesting-lab/internal/vesting"
	walletstub "token-vesting-lab/internal/wallet/stub"
)

const (
	testToken  = "0x00000000000000000000000000000000000000aa"
	otherToken = "0x00000000000000000000000000000000000000bb"
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

func newQueryService(t *testing.T, chain *ledgerstub.Client, wallet *walletstub.Store) *vesting.QueryService {
	t.Helper()
	return vesting.NewQueryService(vesting.QueryOptions{
		Wallet: wallet,
		Ledger: chain,
		Logger: log.New(io.Discard, "", 0),
		Now:    func() time.Time { return testNow },
	})
}

func midpointSchedule(beneficiary string) *domain.VestingSchedule {
	// 2 tokens at 9 decimals, halfway through the window.
	return &domain.VestingSchedule{
		Beneficiary:    beneficiary,
		Token:          testToken,
		TotalAmount:    big.NewInt(2_000_000_000),
		ReleasedAmount: big.NewInt(0),
		StartTime:      testNow.Unix() - 50,
		EndTime:        testNow.Unix() + 50,
	}
}

func TestQueryService_GetVestingInfo(t *testing.T) {
	wallet := walletstub.NewStore("pw")
	beneficiary, err := wallet.Address()
	require.NoError(t, err)

	chain := ledgerstub.NewClient()
	chain.AddToken(testToken, "Lab Token", "LAB", 9)
	chain.AddSchedule(midpointSchedule(beneficiary))

	svc := newQueryService(t, chain, wallet)
	info, err := svc.GetVestingInfo(context.Background(), testToken)
	require.NoError(t, err)

	assert.Equal(t, "Lab Token", info.Token.Name)
	assert.Equal(t, "LAB", info.Token.Symbol)
	assert.Equal(t, 9, info.Token.Decimals)
	assert.Equal(t, beneficiary, info.Beneficiary)

	assert.Equal(t, "2000000000", info.Total.Raw)
	assert.Equal(t, "2", info.Total.Display)
	assert.Equal(t, "1000000000", info.Vested.Raw)
	assert.Equal(t, "1", info.Vested.Display)
	assert.Equal(t, "1000000000", info.Releasable.Raw)
	assert.Equal(t, "1000000000", info.Locked.Raw)
	assert.Equal(t, "0", info.Released.Raw)

	assert.Equal(t, 50, info.Progress)
	assert.Equal(t, "VESTING", info.Phase)
	assert.Equal(t, "1 days remaining", info.TimeRemaining)
	assert.Equal(t, testNow.Add(-50*time.Second).Format(time.RFC3339), info.StartTime)
	assert.Equal(t, testNow.Add(50*time.Second).Format(time.RFC3339), info.EndTime)
}

func TestQueryService_GetVestingInfo_Errors(t *testing.T) {
	wallet := walletstub.NewStore("pw")

	t.Run("invalid token address", func(t *testing.T) {
		svc := newQueryService(t, ledgerstub.NewClient(), wallet)
		_, err := svc.GetVestingInfo(context.Background(), "not-an-address")
		assert.Equal(t, vesting.CodeInvalidTokenAddress, vesting.CodeOf(err))
	})

	t.Run("no wallet", func(t *testing.T) {
		missing := walletstub.NewStore("pw")
		missing.Missing = true
		svc := newQueryService(t, ledgerstub.NewClient(), missing)
		_, err := svc.GetVestingInfo(context.Background(), testToken)
		assert.Equal(t, vesting.CodeNoWallet, vesting.CodeOf(err))
	})

	t.Run("zero-total schedule reads as absent", func(t *testing.T) {
		// The contract returns an all-zero tuple for unknown pairs, which
		// must never surface as a successful zero-amount result.
		svc := newQueryService(t, ledgerstub.NewClient(), wallet)
		_, err := svc.GetVestingInfo(context.Background(), testToken)
		assert.Equal(t, vesting.CodeScheduleNotFound, vesting.CodeOf(err))
	})

	t.Run("schedule fetch failure", func(t *testing.T) {
		chain := ledgerstub.NewClient()
		chain.ScheduleErr = context.DeadlineExceeded
		svc := newQueryService(t, chain, wallet)
		_, err := svc.GetVestingInfo(context.Background(), testToken)
		assert.Equal(t, vesting.CodeScheduleFetchFailed, vesting.CodeOf(err))
	})

	t.Run("ledger unreachable", func(t *testing.T) {
		chain := ledgerstub.NewClient()
		chain.ScheduleErr = fmt.Errorf("read vesting schedule: %w", ledger.ErrRPCUnavailable)
		svc := newQueryService(t, chain, wallet)
		_, err := svc.GetVestingInfo(context.Background(), testToken)
		assert.Equal(t, vesting.CodeRPCFailure, vesting.CodeOf(err))
	})
}

func TestQueryService_ConcurrentQueries(t *testing.T) {
	wallet := walletstub.NewStore("pw")
	beneficiary, err := wallet.Address()
	require.NoError(t, err)

	chain := ledgerstub.NewClient()
	chain.AddToken(testToken, "Lab Token", "LAB", 9)
	chain.AddSchedule(midpointSchedule(beneficiary))

	svc := newQueryService(t, chain, wallet)

	// Each query fans the three metadata reads out into goroutines; parallel
	// queries must leave the stub's counters consistent.
	const queries = 8
	var wg sync.WaitGroup
	wg.Add(queries)
	for i := 0; i < queries; i++ {
		go func() {
			defer wg.Done()
			info, err := svc.GetVestingInfo(context.Background(), testToken)
			assert.NoError(t, err)
			assert.Equal(t, "LAB", info.Token.Symbol)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 3*queries, chain.MetadataCalls.Load())
}

func TestQueryService_MetadataFallback(t *testing.T) {
	wallet := walletstub.NewStore("pw")
	beneficiary, err := wallet.Address()
	require.NoError(t, err)

	chain := ledgerstub.NewClient()
	chain.FailUnknownMetadata = true
	chain.AddSchedule(midpointSchedule(beneficiary))

	svc := newQueryService(t, chain, wallet)
	info, err := svc.GetVestingInfo(context.Background(), testToken)
	require.NoError(t, err)

	assert.Equal(t, domain.UnknownName, info.Token.Name)
	assert.Equal(t, domain.UnknownSymbol, info.Token.Symbol)
	assert.Equal(t, domain.DefaultDecimals, info.Token.Decimals)
}

func TestQueryService_Deterministic(t *testing.T) {
	wallet := walletstub.NewStore("pw")
	beneficiary, err := wallet.Address()
	require.NoError(t, err)

	chain := ledgerstub.NewClient()
	chain.AddToken(testToken, "Lab Token", "LAB", 9)
	chain.AddSchedule(midpointSchedule(beneficiary))

	svc := newQueryService(t, chain, wallet)
	first, err := svc.GetVestingInfo(context.Background(), testToken)
	require.NoError(t, err)
	second, err := svc.GetVestingInfo(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQueryService_GetAllVestingInfo(t *testing.T) {
	wallet := walletstub.NewStore("pw")
	beneficiary, err := wallet.Address()
	require.NoError(t, err)

	chain := ledgerstub.NewClient()
	chain.AddToken(testToken, "Lab Token", "LAB", 9)
	chain.AddSchedule(midpointSchedule(beneficiary))

	svc := newQueryService(t, chain, wallet)

	t.Run("empty input", func(t *testing.T) {
		_, err := svc.GetAllVestingInfo(context.Background(), nil)
		assert.Equal(t, vesting.CodeInvalidInput, vesting.CodeOf(err))
	})

	t.Run("drops failing addresses", func(t *testing.T) {
		batch, err := svc.GetAllVestingInfo(context.Background(), []string{
			"garbage",  // invalid address
			testToken,  // good
			otherToken, // no schedule
		})
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Count)
		require.Len(t, batch.Schedules, 1)
		assert.Equal(t, testToken, batch.Schedules[0].Token.Address)
	})
}
