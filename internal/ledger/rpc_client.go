package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultReceiptPoll = 4 * time.Second
	DefaultReleaseGas  = 120_000
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0 against an EVM node.
type HTTPClient struct {
	endpoint    string
	manager     string // vesting manager contract address
	chainID     *big.Int
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	receiptPoll time.Duration
	heads       *HeadWatcher // optional: wakes receipt polling on new blocks
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for read calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithReceiptPollInterval sets the fallback confirmation poll interval.
func WithReceiptPollInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.receiptPoll = d
	}
}

// WithHeadWatcher attaches a new-heads watcher; receipt polling then wakes on
// each new block instead of a fixed ticker.
func WithHeadWatcher(w *HeadWatcher) ClientOption {
	return func(c *HTTPClient) {
		c.heads = w
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a ledger client for the given RPC endpoint, vesting
// manager contract address and chain ID.
func NewHTTPClient(endpoint, manager string, chainID int64, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		manager:     manager,
		chainID:     big.NewInt(chainID),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		receiptPoll: DefaultReceiptPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// RPC-level errors (including reverts) are returned immediately, not retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCCall(method, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.callOnce(ctx, method, params, result)
		if err == nil {
			return nil
		}
		if _, ok := err.(*rpcError); ok {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRPCUnavailable, c.maxRetries+1, lastErr)
}

// callOnce performs exactly one JSON-RPC round trip. Used directly for
// transaction submission, where a retry would risk double spending.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// callMsg is the eth_call / eth_estimateGas parameter object.
type callMsg struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Data string `json:"data"`
}

// ethCall executes a read-only contract call at the latest block.
func (c *HTTPClient) ethCall(ctx context.Context, to string, data []byte) ([]byte, error) {
	msg := callMsg{To: to, Data: "0x" + hex.EncodeToString(data)}

	var result string
	if err := c.call(ctx, "eth_call", []interface{}{msg, "latest"}, &result); err != nil {
		return nil, err
	}
	return decodeReturn(result)
}

// TokenName reads name() from the token contract.
func (c *HTTPClient) TokenName(ctx context.Context, token string) (string, error) {
	data, err := encodeCall("name()")
	if err != nil {
		return "", err
	}
	ret, err := c.ethCall(ctx, token, data)
	if err != nil {
		return "", fmt.Errorf("read token name: %w", err)
	}
	return decodeString(ret)
}

// TokenSymbol reads symbol() from the token contract.
func (c *HTTPClient) TokenSymbol(ctx context.Context, token string) (string, error) {
	data, err := encodeCall("symbol()")
	if err != nil {
		return "", err
	}
	ret, err := c.ethCall(ctx, token, data)
	if err != nil {
		return "", fmt.Errorf("read token symbol: %w", err)
	}
	return decodeString(ret)
}

// TokenDecimals reads decimals() from the token contract.
func (c *HTTPClient) TokenDecimals(ctx context.Context, token string) (int, error) {
	data, err := encodeCall("decimals()")
	if err != nil {
		return 0, err
	}
	ret, err := c.ethCall(ctx, token, data)
	if err != nil {
		return 0, fmt.Errorf("read token decimals: %w", err)
	}
	v, err := uintWord(ret, 0)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() || v.Int64() > 255 {
		return 0, fmt.Errorf("implausible decimals %s", v)
	}
	return int(v.Int64()), nil
}

// Schedule reads vestingSchedules(beneficiary, token) from the vesting
// manager: (totalAmount, releasedAmount, startTime, endTime). Releasable is
// always computed client-side from this tuple.
func (c *HTTPClient) Schedule(ctx context.Context, beneficiary, token string) (*domain.VestingSchedule, error) {
	data, err := encodeCall("vestingSchedules(address,address)", beneficiary, token)
	if err != nil {
		return nil, err
	}
	ret, err := c.ethCall(ctx, c.manager, data)
	if err != nil {
		return nil, fmt.Errorf("read vesting schedule: %w", err)
	}

	total, err := uintWord(ret, 0)
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	released, err := uintWord(ret, 1)
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	start, err := uintWord(ret, 2)
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	end, err := uintWord(ret, 3)
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if !start.IsInt64() || !end.IsInt64() {
		return nil, fmt.Errorf("schedule timestamps out of range")
	}

	return &domain.VestingSchedule{
		Beneficiary:    beneficiary,
		Token:          token,
		TotalAmount:    total,
		ReleasedAmount: released,
		StartTime:      start.Int64(),
		EndTime:        end.Int64(),
	}, nil
}

// Balance reads balanceOf(account) from the token contract.
func (c *HTTPClient) Balance(ctx context.Context, account, token string) (*big.Int, error) {
	data, err := encodeCall("balanceOf(address)", account)
	if err != nil {
		return nil, err
	}
	ret, err := c.ethCall(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	return uintWord(ret, 0)
}

// SubmitRelease signs release(token) with the key and submits it from the
// key's own account. The send itself is issued exactly once: a timeout here
// can mean an in-flight transaction, and a resend would double-claim.
func (c *HTTPClient) SubmitRelease(ctx context.Context, key *btcec.PrivateKey, token string) (string, error) {
	from := AddressOf(key.PubKey())

	data, err := encodeCall("release(address)", token)
	if err != nil {
		return "", err
	}

	var nonceHex string
	if err := c.call(ctx, "eth_getTransactionCount", []interface{}{from, "pending"}, &nonceHex); err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	nonce, err := hexUint64(nonceHex)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}

	var gasPriceHex string
	if err := c.call(ctx, "eth_gasPrice", nil, &gasPriceHex); err != nil {
		return "", fmt.Errorf("fetch gas price: %w", err)
	}
	gasPrice, err := hexQuantity(gasPriceHex)
	if err != nil {
		return "", fmt.Errorf("fetch gas price: %w", err)
	}

	gas := uint64(DefaultReleaseGas)
	msg := callMsg{From: from, To: c.manager, Data: "0x" + hex.EncodeToString(data)}
	var gasHex string
	if err := c.call(ctx, "eth_estimateGas", []interface{}{msg}, &gasHex); err == nil {
		if est, err := hexUint64(gasHex); err == nil {
			gas = est + est/5 // headroom over the estimate
		}
	} else if IsRevert(err) {
		// The node simulated the call and it reverts; do not submit.
		return "", fmt.Errorf("release would revert: %w", err)
	}

	raw, txHash, err := signLegacyTx(key, txParams{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       c.manager,
		Value:    big.NewInt(0),
		Data:     data,
		ChainID:  c.chainID,
	})
	if err != nil {
		return "", fmt.Errorf("sign release transaction: %w", err)
	}

	var sentHash string
	if err := c.callOnce(ctx, "eth_sendRawTransaction", []interface{}{"0x" + hex.EncodeToString(raw)}, &sentHash); err != nil {
		return "", fmt.Errorf("submit release transaction: %w", err)
	}
	if sentHash == "" {
		sentHash = txHash
	}
	return sentHash, nil
}

// receiptResult is the raw eth_getTransactionReceipt response.
type receiptResult struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
}

// AwaitReceipt blocks until the transaction is mined, waking on new heads
// when a watcher is attached and on a ticker otherwise. The only deadline is
// the caller's context.
func (c *HTTPClient) AwaitReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var wake <-chan struct{}
	if c.heads != nil {
		wake = c.heads.C()
	}

	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		var result *receiptResult
		if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash}, &result); err != nil {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}

		if result != nil && result.BlockNumber != "" {
			blockNum, err := hexUint64(result.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("decode receipt block: %w", err)
			}
			status, err := hexUint64(result.Status)
			if err != nil {
				return nil, fmt.Errorf("decode receipt status: %w", err)
			}
			return &Receipt{
				TxHash:      result.TransactionHash,
				BlockNumber: blockNum,
				Status:      status,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		case <-wake:
		}
	}
}
