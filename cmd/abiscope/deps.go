package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"abiScope/internal/chain"
	"abiScope/internal/config"
	"abiScope/internal/metrics"
	"abiScope/internal/provider"
	"abiScope/internal/refcache"
	"abiScope/internal/registry"
	"abiScope/internal/storage"
	"abiScope/internal/storage/badgerdb"
	"abiScope/internal/storage/memory"
	"abiScope/internal/storage/postgres"
)

// deps holds the collaborators shared by every command.
type deps struct {
	store    storage.DocStore
	provider *provider.Client
	cache    *refcache.ReferenceCache
	closers  []func()
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &deps{}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.store = store
	d.closers = append(d.closers, func() { _ = store.Close() })

	bq, err := provider.NewClient(ctx, provider.Config{
		Project:      cfg.BQProject,
		Credentials:  cfg.BQCredentials,
		Location:     cfg.BQLocation,
		Dataset:      cfg.BQDataset,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.provider = bq
	d.closers = append(d.closers, func() { _ = bq.Close() })

	var tokenProvider refcache.TokenProvider = bq
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL, logger)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		d.closers = append(d.closers, chainClient.Close)
		tokenProvider = provider.NewChainTokens(bq, chain.NewTokenReader(chainClient, logger), logger)
	}

	var abiRegistry refcache.ABIRegistry
	if cfg.EtherscanKey != "" {
		abiRegistry = registry.NewClient(registry.Config{
			URL:    cfg.EtherscanURL,
			APIKey: cfg.EtherscanKey,
			Rate:   cfg.EtherscanRPS,
		}, logger)
	}

	d.cache = refcache.New(refcache.Config{
		Store:    store,
		Provider: bq,
		Tokens:   refcache.NewTokenCache(tokenProvider, logger),
		Registry: abiRegistry,
		Logger:   logger,
	})
	if err := d.cache.Init(ctx, cfg.TokenInfo, cfg.ContractABIs); err != nil {
		d.Close()
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("dependencies ready",
		zap.String("store", cfg.Store),
		zap.String("bq_project", cfg.BQProject),
		zap.String("bq_dataset", cfg.BQDataset),
		zap.Bool("registry", abiRegistry != nil),
		zap.Bool("rpc_fallback", cfg.RPCURL != ""),
		zap.Int("tokens", d.cache.Tokens().Size()),
		zap.Int("contracts", d.cache.Size()),
	)
	return d, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.DocStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.StoreBadger:
		store, err := badgerdb.Open(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
