package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"marketplace/config"
	"marketplace/crypto"
	"marketplace/native/market"
	"marketplace/native/token"
	"marketplace/observability/logging"
	"marketplace/state"
	"marketplace/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	backend := flag.String("db", "leveldb", "Storage backend: leveldb or bolt")
	applyGenesis := flag.Bool("genesis", false, "Seed the ledger from the config's genesis section")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MARKET_ENV"))
	logger := logging.Setup("marketd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := openDatabase(*backend, cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	mgr := state.NewManager(db)
	tok := token.NewService(mgr)

	if *applyGenesis {
		if err := state.Bootstrap(cfg, mgr, tok); err != nil {
			logger.Error("Genesis bootstrap failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Genesis applied",
			slog.Int("accounts", len(cfg.Accounts)),
			slog.Int("assets", len(cfg.Assets)))
	}

	platform, bump, err := market.PlatformAddress()
	if err != nil {
		logger.Error("Platform derivation failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Marketplace ready",
		slog.String("network", cfg.NetworkName),
		slog.String("platform", crypto.NewAddress(crypto.MarketPrefix, platform).String()),
		slog.Int("bump", int(bump)),
		slog.String("dataDir", cfg.DataDir))
}

func openDatabase(backend, dataDir string) (storage.Database, error) {
	switch backend {
	case "leveldb":
		return storage.NewLevelDB(dataDir)
	case "bolt":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(dataDir, "market.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
