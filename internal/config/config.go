// Package config carries the settings shared by the binaries. Values are
// threaded into services explicitly; nothing here is a mutable global.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults target a local development node.
const (
	DefaultRPCEndpoint   = "http://localhost:8545"
	DefaultWSEndpoint    = "ws://localhost:8546"
	DefaultLaunchBaseURL = "http://localhost:3000"
	DefaultChainID       = 1337
	DefaultKeystorePath  = "wallet.json"
)

// Config holds the runtime settings for the CLI and the server.
type Config struct {
	RPCEndpoint           string
	WSEndpoint            string
	VestingManagerAddress string
	LaunchBaseURL         string
	ChainID               int64
	KeystorePath          string

	// Optional persistence. Empty DSNs select in-memory stores.
	PostgresDSN   string
	ClickhouseDSN string
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		RPCEndpoint:   DefaultRPCEndpoint,
		WSEndpoint:    DefaultWSEndpoint,
		LaunchBaseURL: DefaultLaunchBaseURL,
		ChainID:       DefaultChainID,
		KeystorePath:  DefaultKeystorePath,
	}
}

// FromEnv builds a Config from defaults overridden by environment variables.
func FromEnv() (Config, error) {
	cfg := Default()

	setIfPresent(&cfg.RPCEndpoint, "LEDGER_RPC_ENDPOINT")
	setIfPresent(&cfg.WSEndpoint, "LEDGER_WS_ENDPOINT")
	setIfPresent(&cfg.VestingManagerAddress, "VESTING_MANAGER_ADDRESS")
	setIfPresent(&cfg.LaunchBaseURL, "LAUNCH_API_URL")
	setIfPresent(&cfg.KeystorePath, "KEYSTORE_PATH")
	setIfPresent(&cfg.PostgresDSN, "POSTGRES_DSN")
	setIfPresent(&cfg.ClickhouseDSN, "CLICKHOUSE_DSN")

	if raw, ok := os.LookupEnv("CHAIN_ID"); ok && raw != "" {
		chainID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHAIN_ID %q: %w", raw, err)
		}
		if chainID <= 0 {
			return Config{}, fmt.Errorf("CHAIN_ID must be positive, got %d", chainID)
		}
		cfg.ChainID = chainID
	}

	return cfg, nil
}

// Validate checks the fields every ledger-touching command needs.
func (c Config) Validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("rpc endpoint is required")
	}
	if c.VestingManagerAddress == "" {
		return errors.New("vesting manager address is required (set VESTING_MANAGER_ADDRESS)")
	}
	return nil
}

// LoadDotEnv loads a .env file into the environment when one exists.
// A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func setIfPresent(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
