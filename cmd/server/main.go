// Package main provides the HTTP service exposing vesting queries, claims
// and coin launches, with an optional persistent claim journal and
// observation timeseries.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-vesting-lab/internal/config"
	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/launch"
	"token-vesting-lab/internal/ledger"
	"token-vesting-lab/internal/observability"
	"token-vesting-lab/internal/storage"
	chstore "token-vesting-lab/internal/storage/clickhouse"
	"token-vesting-lab/internal/storage/memory"
	"token-vesting-lab/internal/storage/migrations"
	pgstore "token-vesting-lab/internal/storage/postgres"
	"token-vesting-lab/internal/vesting"
	"token-vesting-lab/internal/wallet"
)

const shutdownTimeout = 15 * time.Second

// Server wires the services behind the HTTP API.
type Server struct {
	query  *vesting.QueryService
	claim  *vesting.ClaimService
	launch *launch.Client
	wallet wallet.Store

	journal storage.ClaimRecordStore
	logger  *log.Logger
	started time.Time
}

// stores holds the selected storage implementations.
type stores struct {
	journal      storage.ClaimRecordStore
	observations storage.VestingObservationStore
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadDotEnv(); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Bad configuration: %v", err)
	}

	// Flags override the environment.
	addr := flag.String("addr", ":8080", "HTTP listen address")
	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Ledger JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", cfg.WSEndpoint, "Ledger WebSocket endpoint for new-heads")
	manager := flag.String("vesting-manager", cfg.VestingManagerAddress, "Vesting manager contract address")
	keystorePath := flag.String("keystore", cfg.KeystorePath, "Wallet keystore path")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN for the claim journal (empty: in-memory)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse DSN for observations (empty: in-memory)")
	flag.Parse()

	cfg.RPCEndpoint = *rpcEndpoint
	cfg.WSEndpoint = *wsEndpoint
	cfg.VestingManagerAddress = *manager
	cfg.KeystorePath = *keystorePath
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Bad configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	var clientOpts []ledger.ClientOption
	if cfg.WSEndpoint != "" {
		watcher, err := ledger.NewHeadWatcher(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			logger.Printf("Head watcher unavailable, falling back to polling: %v", err)
		} else {
			defer watcher.Close()
			clientOpts = append(clientOpts, ledger.WithHeadWatcher(watcher))
		}
	}
	chain := ledger.NewHTTPClient(cfg.RPCEndpoint, cfg.VestingManagerAddress, cfg.ChainID, clientOpts...)
	walletStore := wallet.NewFileStore(cfg.KeystorePath)

	server := &Server{
		query: vesting.NewQueryService(vesting.QueryOptions{
			Wallet:       walletStore,
			Ledger:       chain,
			Observations: st.observations,
			Logger:       log.New(os.Stdout, "[query] ", log.LstdFlags),
		}),
		claim: vesting.NewClaimService(vesting.ClaimOptions{
			Wallet:  walletStore,
			Ledger:  chain,
			Journal: st.journal,
			Logger:  log.New(os.Stdout, "[claim] ", log.LstdFlags),
		}),
		launch:  launch.NewClient(cfg.LaunchBaseURL),
		wallet:  walletStore,
		journal: st.journal,
		logger:  logger,
		started: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	go func() {
		<-ctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores selects persistence: in-memory by default, PostgreSQL and
// ClickHouse when their DSNs are configured.
func createStores(ctx context.Context, cfg config.Config, logger *log.Logger) (*stores, func(), error) {
	st := &stores{
		journal:      memory.NewClaimRecordStore(),
		observations: memory.NewVestingObservationStore(),
	}
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.journal = pgstore.NewClaimRecordStore(pool)
		logger.Println("Claim journal: postgres")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		st.observations = chstore.NewVestingObservationStore(conn)
		logger.Println("Observation store: clickhouse")
	}

	return st, cleanup, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /api/vesting", s.handleVestingInfo)
	mux.HandleFunc("POST /api/vesting/all", s.handleVestingAll)
	mux.HandleFunc("POST /api/claim", s.handleClaim)
	mux.HandleFunc("POST /api/launch", s.handleLaunch)
	mux.HandleFunc("GET /api/claims", s.handleClaims)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleVestingInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.query.GetVestingInfo(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleVestingAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "", "malformed request body"))
		return
	}

	batch, err := s.query.GetAllVestingInfo(r.Context(), req.Tokens)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "", "malformed request body"))
		return
	}

	outcome, err := s.claim.ClaimVestedTokens(r.Context(), req.Password, req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "", "malformed request body"))
		return
	}

	key, err := s.wallet.Unlock(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNoWallet):
			writeJSON(w, http.StatusNotFound, errorBody("NO_WALLET", "", "no wallet found; create one first"))
		case errors.Is(err, wallet.ErrInvalidPassword):
			writeJSON(w, http.StatusUnauthorized, errorBody("INVALID_PASSWORD", "", "wrong wallet password"))
		default:
			writeJSON(w, http.StatusInternalServerError, errorBody("", "", err.Error()))
		}
		return
	}

	result, err := s.launch.Launch(r.Context(), key, launch.Request{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("", "", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	beneficiary := r.URL.Query().Get("beneficiary")
	token := r.URL.Query().Get("token")

	var (
		records []*domain.ClaimRecord
		err     error
	)
	switch {
	case beneficiary != "":
		records, err = s.journal.GetByBeneficiary(ctx, beneficiary)
	case token != "":
		records, err = s.journal.GetByToken(ctx, token)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "", "beneficiary or token query parameter required"))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("", "", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claims": records,
		"count":  len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(code, token, message string) map[string]any {
	e := map[string]any{"message": message}
	if code != "" {
		e["code"] = code
	}
	if token != "" {
		e["token"] = token
	}
	return map[string]any{"error": e}
}

// writeError maps the service taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := vesting.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case vesting.CodeInvalidInput, vesting.CodeInvalidTokenAddress:
		status = http.StatusBadRequest
	case vesting.CodeInvalidPassword:
		status = http.StatusUnauthorized
	case vesting.CodeNoWallet, vesting.CodeScheduleNotFound:
		status = http.StatusNotFound
	case vesting.CodeNothingToClaim:
		status = http.StatusConflict
	case vesting.CodeScheduleFetchFailed, vesting.CodeTransactionReverted,
		vesting.CodeClaimFailed, vesting.CodeRPCFailure:
		status = http.StatusBadGateway
	}

	message := err.Error()
	token := ""
	var vErr *vesting.Error
	if errors.As(err, &vErr) {
		message = vErr.Message
		token = vErr.Token
	}

	writeJSON(w, status, errorBody(string(code), token, message))
}
