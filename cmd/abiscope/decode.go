package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"abiScope/internal/config"
	"abiScope/internal/decode"
	"abiScope/internal/model"
	"abiScope/internal/storage"
	"abiScope/internal/stream"
)

func runDecode(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid contract address %q", args[0])
	}
	address := model.NormalizeAddress(args[0])

	from, to, err := config.ParseDateRange(args[1:], time.Now())
	if err != nil {
		return err
	}

	baselines, err := loadBaselines(cfg.StandardABIs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	var rejects stream.RejectSink
	if cfg.Rejects != "" {
		sink, err := storage.OpenJsonlRejects(cfg.Rejects)
		if err != nil {
			return err
		}
		defer func() {
			if sink.Written() > 0 {
				logger.Warn("rows rejected", zap.Int("count", sink.Written()), zap.String("path", cfg.Rejects))
			}
			if err := sink.Close(); err != nil {
				logger.Error("close rejects", zap.Error(err))
			}
		}()
		rejects = sink
	}

	decoder := decode.NewContext(decode.NewEngine(), baselines, logger)
	processor := stream.NewProcessor(d.cache, decoder, d.store, rejects, logger)
	runner := stream.NewRunner(stream.RunConfig{
		TxThreshold:       cfg.TxThreshold,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, processor, d.provider, d.store, logger)

	logger.Info("decode start",
		zap.String("address", address),
		zap.String("from", from.Format("2006-01-02")),
		zap.String("to", to.Format("2006-01-02")),
		zap.Int("tx_threshold", cfg.TxThreshold),
		zap.Int("baselines", len(baselines)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.DecodeRange(ctx, address, from, to)
}

func loadBaselines(paths []string) ([]decode.Baseline, error) {
	if len(paths) == 0 {
		return decode.StandardBaselines()
	}
	return decode.LoadBaselines(paths)
}
