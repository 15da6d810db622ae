// Package launch talks to the token launch API. The API is an external
// collaborator; when it is unreachable the client degrades to a stubbed
// result so the rest of the flow stays exercisable.
package launch

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"

	"token-vesting-lab/internal/ledger"
)

// DefaultTimeout bounds one launch request.
const DefaultTimeout = 30 * time.Second

// Request carries the coin metadata submitted to the launch API.
type Request struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
}

// Result is the launch outcome. Stubbed marks results fabricated locally
// because the endpoint was unreachable.
type Result struct {
	TxHash          string `json:"txHash"`
	ContractAddress string `json:"contractAddress"`
	Stubbed         bool   `json:"stubbed"`
}

// Client submits launch requests to the launch API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// ClientOption configures the launch client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(lc *Client) { lc.client = c }
}

// WithLogger replaces the client logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(lc *Client) { lc.logger = l }
}

// NewClient creates a launch client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.New(os.Stdout, "[launch] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// launchPayload is the wire request: metadata plus the creator's identity
// proof, a secp256k1 signature over the canonical message.
type launchPayload struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Creator     string `json:"creator"`
	Signature   string `json:"signature"`
}

type launchResponse struct {
	TxHash          string `json:"txHash"`
	ContractAddress string `json:"contractAddress"`
}

// Launch signs the request with the creator key and posts it. A transport
// failure falls back to a locally generated stub result; an HTTP error
// status from a reachable endpoint is a real failure.
func (c *Client) Launch(ctx context.Context, key *btcec.PrivateKey, req Request) (*Result, error) {
	if req.Name == "" || req.Symbol == "" {
		return nil, fmt.Errorf("launch request needs name and symbol")
	}

	creator := ledger.AddressOf(key.PubKey())
	payload := launchPayload{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Creator:     creator,
		Signature:   signLaunch(key, creator, req),
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("marshal launch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/launch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create launch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Printf("launch API unreachable, returning stubbed result: %v", err)
		return stubResult()
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read launch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("launch API returned status %d: %s", resp.StatusCode, respBody)
	}

	var parsed launchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse launch response: %w", err)
	}
	if parsed.TxHash == "" || parsed.ContractAddress == "" {
		return nil, fmt.Errorf("launch response missing txHash or contractAddress")
	}

	return &Result{
		TxHash:          parsed.TxHash,
		ContractAddress: parsed.ContractAddress,
	}, nil
}

// signLaunch signs the canonical launch message with the creator key.
// The message binds creator, name and symbol so a payload cannot be
// replayed for a different coin.
func signLaunch(key *btcec.PrivateKey, creator string, req Request) string {
	msg := fmt.Sprintf("launch|%s|%s|%s", creator, req.Name, req.Symbol)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(msg))
	digest := h.Sum(nil)

	sig := btcecdsa.SignCompact(key, digest, false)
	return "0x" + hex.EncodeToString(sig)
}

// stubResult fabricates a launch result with random identifiers.
func stubResult() (*Result, error) {
	txHash := make([]byte, 32)
	if _, err := rand.Read(txHash); err != nil {
		return nil, fmt.Errorf("generate stub tx hash: %w", err)
	}
	addr := make([]byte, 20)
	if _, err := rand.Read(addr); err != nil {
		return nil, fmt.Errorf("generate stub address: %w", err)
	}

	return &Result{
		TxHash:          "0x" + hex.EncodeToString(txHash),
		ContractAddress: "0x" + hex.EncodeToString(addr),
		Stubbed:         true,
	}, nil
}
