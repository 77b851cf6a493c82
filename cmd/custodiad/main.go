package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"custodia/config"
	"custodia/core"
	"custodia/core/identity"
	"custodia/crypto"
	"custodia/native/custody"
	"custodia/observability/logging"
	"custodia/rpc"
	"custodia/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CUSTODIA_ENV"))
	logger := logging.Setup("custodiad", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := openDatabase(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer func() {
		_ = db.Close()
	}()

	auth, err := callerAllowlist(cfg.AllowedCallers)
	if err != nil {
		panic(fmt.Sprintf("Failed to build caller allowlist: %v", err))
	}

	node := core.NewNode(db, core.NodeConfig{
		PausePolicy: custody.PausePolicy{
			Deposits:    cfg.Pauses.Deposits,
			Withdrawals: cfg.Pauses.Withdrawals,
		},
		PrivacyHistoryLimit: cfg.PrivacyHistoryLimit,
		Authenticator:       auth,
	})

	logger.Info("node ready",
		slog.String("network", cfg.NetworkName),
		slog.String("db", cfg.DBBackend),
		slog.Bool("pauseDeposits", cfg.Pauses.Deposits),
		slog.Bool("pauseWithdrawals", cfg.Pauses.Withdrawals),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// callerAllowlist builds the engine authenticator from the configured bech32
// addresses. An empty list yields nil, leaving the node on its allow-all
// default where the RPC signature check is the sole identity proof.
func callerAllowlist(addrs []string) (identity.Authenticator, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	list := identity.NewAllowlist()
	for _, raw := range addrs {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid AllowedCallers entry %q: %w", raw, err)
		}
		var member [20]byte
		copy(member[:], addr.Bytes())
		list.Add(member)
	}
	return list, nil
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBBackend)) {
	case "leveldb":
		return storage.NewLevelDB(cfg.DataDir)
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "custodia.db"))
	case "memory":
		return storage.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unsupported DBBackend %q", cfg.DBBackend)
	}
}
