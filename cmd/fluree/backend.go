package main

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fluree/fluree-core/config"
	"github.com/fluree/fluree-core/dbledger"
	"github.com/fluree/fluree-core/storage"
)

// fuelFromConfig returns a fuel meter sized from the loaded config, or
// nil (no limit) when no budget is configured.
func fuelFromConfig(cfg *config.Config) *dbledger.FuelMeter {
	if cfg.Fuel.Budget <= 0 {
		return nil
	}
	return dbledger.NewFuelMeter(cfg.Fuel.Budget)
}

// backends bundles the blob-store/naming-service pair a ledger branch
// is opened against, selected by config.Config.Storage.Scheme.
type backends struct {
	store  storage.BlobStore
	naming storage.NamingService
}

// loadConfig loads a .env file if one is present, merges FLUREE_-prefixed
// environment variables over the configured env overlay, then lets
// --storage/--db-path on the command line override the storage scheme
// and path for a single invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("fluree: load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("storage"); v != "" {
		cfg.Storage.Scheme = v
	}
	if v, _ := cmd.Flags().GetString("db-path"); v != "" {
		cfg.Storage.Path = v
	}
	return cfg, nil
}

// openBackends constructs the BlobStore/NamingService pair named by
// cfg.Storage.Scheme. The file backend keeps blobs and the alias map
// under cfg.Storage.Path; the ipfs backend pins blobs to the configured
// gateway but still resolves aliases against a local file, since IPFS
// itself has no mutable pointer primitive this module relies on.
func openBackends(cfg *config.Config, log *logrus.Logger) (*backends, error) {
	switch cfg.Storage.Scheme {
	case "", "memory":
		return &backends{store: storage.NewMemoryStore(), naming: storage.NewMemoryNaming()}, nil

	case "file":
		dir := cfg.Storage.Path
		if dir == "" {
			dir = "./fluree-data"
		}
		store, err := storage.NewFileStore(filepath.Join(dir, "blobs"))
		if err != nil {
			return nil, err
		}
		naming, err := storage.NewFileNaming(filepath.Join(dir, "naming.json"))
		if err != nil {
			return nil, err
		}
		return &backends{store: store, naming: naming}, nil

	case "ipfs":
		dir := cfg.Storage.Path
		if dir == "" {
			dir = "./fluree-data"
		}
		store, err := storage.NewIPFSStore(storage.IPFSConfig{
			Gateway:        cfg.Storage.Gateway,
			CacheDir:       filepath.Join(dir, "ipfs-cache"),
			GatewayTimeout: cfg.Storage.Timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		naming, err := storage.NewFileNaming(filepath.Join(dir, "naming.json"))
		if err != nil {
			return nil, err
		}
		return &backends{store: store, naming: naming}, nil

	default:
		return nil, fmt.Errorf("fluree: unknown storage scheme %q", cfg.Storage.Scheme)
	}
}
