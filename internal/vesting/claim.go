package vesting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/ledger"
	"token-vesting-lab/internal/observability"
	"token-vesting-lab/internal/storage"
	"token-vesting-lab/internal/wallet"
)

// Outcome is the result of a successful claim.
type Outcome struct {
	Token       domain.TokenInfo `json:"token"`
	Beneficiary string           `json:"beneficiary"`

	Claimed     AmountField `json:"claimed"`
	NewBalance  AmountField `json:"newBalance"`
	TxHash      string      `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

// ClaimOptions configures ClaimService.
type ClaimOptions struct {
	Wallet wallet.Store
	Ledger ledger.Client

	// Journal, when set, receives a best-effort record of every confirmed
	// claim. Failures are logged, never surfaced.
	Journal storage.ClaimRecordStore

	Logger *log.Logger
	Now    func() time.Time
}

// ClaimService releases vested tokens to the wallet holder. It submits at
// most one transaction per call and never retries a submission.
type ClaimService struct {
	wallet  wallet.Store
	ledger  ledger.Client
	journal storage.ClaimRecordStore
	logger  *log.Logger
	now     func() time.Time
}

// NewClaimService creates a claim service.
func NewClaimService(opts ClaimOptions) *ClaimService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[claim] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ClaimService{
		wallet:  opts.Wallet,
		ledger:  opts.Ledger,
		journal: opts.Journal,
		logger:  logger,
		now:     now,
	}
}

// ClaimVestedTokens unlocks the wallet, verifies there is something to
// release and submits a release transaction, waiting for confirmation.
// Credential and schedule checks happen before any state-changing call, so
// a rejected claim leaves the ledger untouched.
func (s *ClaimService) ClaimVestedTokens(ctx context.Context, password, token string) (*Outcome, error) {
	start := s.now()
	outcome, err := s.claim(ctx, password, token)
	if err != nil {
		observability.RecordClaim(string(CodeOf(err)))
		return nil, err
	}
	observability.RecordClaim("success")
	observability.RecordConfirmationWait(s.now().Sub(start).Seconds())
	return outcome, nil
}

func (s *ClaimService) claim(ctx context.Context, password, token string) (*Outcome, error) {
	if !ledger.ValidAddress(token) {
		return nil, newError(CodeInvalidTokenAddress, token, "not a valid token address", nil)
	}

	key, err := s.wallet.Unlock(password)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNoWallet):
			return nil, newError(CodeNoWallet, token, "no wallet found; create one first", err)
		case isInvalidPassword(err):
			return nil, newError(CodeInvalidPassword, token, "wrong wallet password", err)
		default:
			return nil, newError(CodeClaimFailed, token,
				fmt.Sprintf("could not unlock wallet: %v", err), err)
		}
	}
	beneficiary := ledger.AddressOf(key.PubKey())

	tokenInfo := fetchTokenInfoWith(ctx, s.ledger, token)

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
	releasable := ReleasableAt(schedule, now)
	if releasable.Sign() <= 0 {
		return nil, newError(CodeNothingToClaim, token, "no tokens are releasable yet", nil)
	}

	txHash, err := s.ledger.SubmitRelease(ctx, key, token)
	if err != nil {
		if ledger.IsRevert(err) {
			return nil, newError(CodeTransactionReverted, token,
				fmt.Sprintf("release transaction reverted: %v", err), err)
		}
		return nil, newError(CodeClaimFailed, token,
			fmt.Sprintf("could not submit release transaction: %v", err), err)
	}
	s.logger.Printf("submitted release tx %s for %s", txHash, token)

	receipt, err := s.ledger.AwaitReceipt(ctx, txHash)
	if err != nil {
		return nil, newError(CodeClaimFailed, token,
			fmt.Sprintf("confirmation wait for %s failed, the transaction may still land: %v", txHash, err), err)
	}
	if receipt.Status == 0 {
		return nil, newError(CodeTransactionReverted, token,
			fmt.Sprintf("release transaction %s reverted on chain", txHash), ledger.ErrReverted)
	}

	claimed, err := formatAmount(releasable, tokenInfo.Decimals)
	if err != nil {
		return nil, newError(CodeClaimFailed, token,
			fmt.Sprintf("malformed claimed amount: %v", err), err)
	}

	// The balance re-read is advisory. The claim is confirmed at this
	// point, so a read failure only degrades the reported balance.
	newBalance := AmountField{Raw: "0", Display: "0"}
	if balance, err := s.ledger.Balance(ctx, beneficiary, token); err != nil {
		s.logger.Printf("balance re-read after claim failed for %s: %v", token, err)
	} else if formatted, err := formatAmount(balance, tokenInfo.Decimals); err == nil {
		newBalance = formatted
	}

	outcome := &Outcome{
		Token:       tokenInfo,
		Beneficiary: beneficiary,
		Claimed:     claimed,
		NewBalance:  newBalance,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
	}
	s.record(ctx, outcome)
	return outcome, nil
}

// record journals the confirmed claim, best-effort.
func (s *ClaimService) record(ctx context.Context, outcome *Outcome) {
	if s.journal == nil {
		return
	}
	rec := &domain.ClaimRecord{
		TxHash:        outcome.TxHash,
		Beneficiary:   outcome.Beneficiary,
		Token:         outcome.Token.Address,
		ClaimedAmount: outcome.Claimed.Raw,
		BlockNumber:   outcome.BlockNumber,
		NewBalance:    outcome.NewBalance.Raw,
		ClaimedAt:     s.now().Unix(),
		CreatedAt:     s.now().Unix(),
	}
	if err := s.journal.Insert(ctx, rec); err != nil {
		s.logger.Printf("claim journal write failed for %s: %v", outcome.TxHash, err)
		return
	}
	observability.RecordClaimJournaled()
}

// fetchTokenInfoWith mirrors QueryService.fetchTokenInfo for callers that
// hold only a ledger client.
func fetchTokenInfoWith(ctx context.Context, client ledger.Client, token string) domain.TokenInfo {
	s := QueryService{ledger: client}
	return s.fetchTokenInfo(ctx, token)
}

// isInvalidPassword classifies decryption failures. Keystore implementations
// outside this module may not wrap wallet.ErrInvalidPassword, so well-known
// failure messages are matched as a fallback.
func isInvalidPassword(err error) bool {
	if errors.Is(err, wallet.ErrInvalidPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"message authentication failed",
		"invalid password",
		"could not decrypt",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
