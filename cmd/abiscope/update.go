package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"abiScope/internal/config"
)

func runUpdate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadUpdate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	ids, err := d.store.ContractIDs(ctx, cfg.View)
	if err != nil {
		return fmt.Errorf("list contracts: %w", err)
	}
	logger.Info("update contract cache", zap.String("view", cfg.View), zap.Int("contracts", len(ids)))

	for start := 0; start < len(ids); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		logger.Info("update batch", zap.Int("start", start), zap.Int("end", end))
		// Stored records are loaded as they are; only addresses missing from the
		// store reach the provider.
		if err := d.cache.AddAll(ctx, ids[start:end]); err != nil {
			return fmt.Errorf("update batch %d: %w", start, err)
		}
	}

	logger.Info("update complete", zap.Int("contracts", d.cache.Size()))
	return nil
}
