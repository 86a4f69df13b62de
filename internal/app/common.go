package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frannie30/ip-add-identifier/internal/aggregate"
	"github.com/frannie30/ip-add-identifier/internal/config"
	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/entries/sqlite"
	"github.com/frannie30/ip-add-identifier/internal/localinfo"
	"github.com/frannie30/ip-add-identifier/internal/provider"
)

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if storeBackend != "" {
		cfg.StoreBackend = strings.ToLower(storeBackend)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the entry store selected by cfg.StoreBackend.
func openStore(cfg config.Config) (entries.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return entries.NewMemoryStore(), nil
	case config.BackendSQLite:
		store, err := sqlite.New(filepath.Join(cfg.DataDir, "entries.db"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile:
		store := entries.NewFileStore(cfg.DataDir)
		if err := store.LoadFromDisk(); err != nil {
			return nil, fmt.Errorf("load entries: %w", err)
		}
		log.Printf("Loaded %d saved entries from %s", store.Count(), cfg.DataDir)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// newAggregator builds the default provider set from cfg.
func newAggregator(cfg config.Config) *aggregate.Aggregator {
	providers := provider.Defaults(provider.Options{
		STUNServers: cfg.STUNServers,
		IPInfoToken: cfg.IPInfoToken,
	})
	return aggregate.New(providers, aggregate.Config{
		Timeout: cfg.ProviderTimeout,
		Policy:  aggregate.Policy{SecondaryFallback: cfg.GeoFallback},
		Local:   localinfo.Collect,
	})
}

func providerNames(agg *aggregate.Aggregator) []string {
	var names []string
	for _, p := range agg.Providers() {
		names = append(names, p.Name())
	}
	return names
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
