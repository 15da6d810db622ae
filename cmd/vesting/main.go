// Package main provides the wallet-holder CLI: inspect vesting schedules,
// claim vested tokens and launch new coins.
//
// Usage:
//
//	vesting create-wallet --password <pw>
//	vesting info --token <address>
//	vesting all <address> [<address>...]
//	vesting claim --token <address> --password <pw>
//	vesting launch --name <name> --symbol <symbol> [--description <text>] --password <pw>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-vesting-lab/internal/config"
	"token-vesting-lab/internal/launch"
	"token-vesting-lab/internal/ledger"
	"token-vesting-lab/internal/storage"
	"token-vesting-lab/internal/storage/migrations"
	pgstore "token-vesting-lab/internal/storage/postgres"
	"token-vesting-lab/internal/vesting"
	"token-vesting-lab/internal/wallet"
)

func main() {
	logger := log.New(os.Stderr, "[vesting] ", log.LstdFlags)

	if err := config.LoadDotEnv(); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Bad configuration: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Cancel outstanding RPC calls on Ctrl-C.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "create-wallet":
		err = runCreateWallet(cfg, os.Args[2:])
	case "info":
		err = runInfo(ctx, cfg, logger, os.Args[2:])
	case "all":
		err = runAll(ctx, cfg, logger, os.Args[2:])
	case "claim":
		err = runClaim(ctx, cfg, logger, os.Args[2:])
	case "launch":
		err = runLaunch(ctx, cfg, logger, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `vesting - inspect and claim vested tokens

Commands:
  create-wallet  Create the local wallet keystore
  info           Show the vesting schedule for one token
  all            Show vesting schedules for several tokens
  claim          Release all currently vested tokens
  launch         Launch a new coin via the launch API

Run 'vesting <command> -h' for command flags.`)
}

// printError emits machine-readable failures on stdout so scripts can
// dispatch on the code.
func printError(err error) {
	out := struct {
		Error struct {
			Code    string `json:"code"`
			Token   string `json:"token,omitempty"`
			Message string `json:"message"`
		} `json:"error"`
	}{}

	out.Error.Code = string(vesting.CodeOf(err))
	out.Error.Message = err.Error()
	var vErr *vesting.Error
	if errors.As(err, &vErr) {
		out.Error.Token = vErr.Token
		out.Error.Message = vErr.Message
	}
	printJSON(out)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// newLedgerClient builds the RPC client, attaching a new-heads watcher when
// a WebSocket endpoint is configured.
func newLedgerClient(ctx context.Context, cfg config.Config, logger *log.Logger) *ledger.HTTPClient {
	var opts []ledger.ClientOption
	if cfg.WSEndpoint != "" {
		watcher, err := ledger.NewHeadWatcher(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			logger.Printf("Head watcher unavailable, falling back to polling: %v", err)
		} else {
			opts = append(opts, ledger.WithHeadWatcher(watcher))
		}
	}
	return ledger.NewHTTPClient(cfg.RPCEndpoint, cfg.VestingManagerAddress, cfg.ChainID, opts...)
}

// claimJournal opens the Postgres journal when a DSN is configured.
func claimJournal(ctx context.Context, cfg config.Config, logger *log.Logger) (storage.ClaimRecordStore, func()) {
	if cfg.PostgresDSN == "" {
		return nil, func() {}
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Printf("Claim journal unavailable: %v", err)
		return nil, func() {}
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Printf("Claim journal migrations failed: %v", err)
		pool.Close()
		return nil, func() {}
	}
	return pgstore.NewClaimRecordStore(pool), pool.Close
}

func runCreateWallet(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("create-wallet", flag.ExitOnError)
	password := fs.String("password", os.Getenv("WALLET_PASSWORD"), "Password for the new keystore")
	fs.Parse(args)

	if *password == "" {
		return fmt.Errorf("--password is required")
	}

	store := wallet.NewFileStore(cfg.KeystorePath)
	address, err := store.Create(*password, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	printJSON(struct {
		Address      string `json:"address"`
		KeystorePath string `json:"keystorePath"`
	}{address, cfg.KeystorePath})
	return nil
}

func runInfo(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	token := fs.String("token", "", "Token contract address")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc := vesting.NewQueryService(vesting.QueryOptions{
		Wallet: wallet.NewFileStore(cfg.KeystorePath),
		Ledger: newLedgerClient(ctx, cfg, logger),
		Logger: logger,
	})

	info, err := svc.GetVestingInfo(ctx, *token)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

func runAll(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("all", flag.ExitOnError)
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc := vesting.NewQueryService(vesting.QueryOptions{
		Wallet: wallet.NewFileStore(cfg.KeystorePath),
		Ledger: newLedgerClient(ctx, cfg, logger),
		Logger: logger,
	})

	batch, err := svc.GetAllVestingInfo(ctx, fs.Args())
	if err != nil {
		return err
	}
	printJSON(batch)
	return nil
}

func runClaim(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ExitOnError)
	token := fs.String("token", "", "Token contract address")
	password := fs.String("password", os.Getenv("WALLET_PASSWORD"), "Wallet password")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		return err
	}

	journal, closeJournal := claimJournal(ctx, cfg, logger)
	defer closeJournal()

	svc := vesting.NewClaimService(vesting.ClaimOptions{
		Wallet:  wallet.NewFileStore(cfg.KeystorePath),
		Ledger:  newLedgerClient(ctx, cfg, logger),
		Journal: journal,
		Logger:  logger,
	})

	outcome, err := svc.ClaimVestedTokens(ctx, *password, *token)
	if err != nil {
		return err
	}
	printJSON(outcome)
	return nil
}

func runLaunch(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	name := fs.String("name", "", "Coin name")
	symbol := fs.String("symbol", "", "Coin ticker symbol")
	description := fs.String("description", "", "Coin description")
	password := fs.String("password", os.Getenv("WALLET_PASSWORD"), "Wallet password")
	fs.Parse(args)

	store := wallet.NewFileStore(cfg.KeystorePath)
	key, err := store.Unlock(*password)
	if err != nil {
		return err
	}

	client := launch.NewClient(cfg.LaunchBaseURL, launch.WithLogger(logger))
	result, err := client.Launch(ctx, key, launch.Request{
		Name:        *name,
		Symbol:      *symbol,
		Description: *description,
	})
	if err != nil {
		return err
	}
	printJSON(result)
	return nil
}
