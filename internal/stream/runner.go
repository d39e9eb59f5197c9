package stream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"abiScope/internal/model"
	"abiScope/internal/provider"
)

// DefaultTxThreshold is the stored transaction count above which a day is not
// streamed again.
const DefaultTxThreshold = 1000

// Source opens day-bounded provider streams.
type Source interface {
	TransactionStream(ctx context.Context, day time.Time, address string) (provider.TransactionIterator, error)
	EventStream(ctx context.Context, day time.Time) (provider.EventIterator, error)
}

// DayIndex answers the transaction views of the store.
type DayIndex interface {
	TransactionCount(ctx context.Context, address string, day time.Time) (int, error)
	TransactionHashes(ctx context.Context, address string, day time.Time) ([]string, error)
}

// RunConfig holds runtime settings for day runs.
type RunConfig struct {
	TxThreshold       int
	CheckpointPath    string
	CheckpointEnabled bool
}

// Runner decodes a contract's activity day by day: its transactions first, then
// the day's events that belong to them.
type Runner struct {
	cfg        RunConfig
	processor  *Processor
	source     Source
	index      DayIndex
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

func NewRunner(cfg RunConfig, processor *Processor, source Source, index DayIndex, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TxThreshold <= 0 {
		cfg.TxThreshold = DefaultTxThreshold
	}
	return &Runner{
		cfg:        cfg,
		processor:  processor,
		source:     source,
		index:      index,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		logger:     logger,
	}
}

// DecodeDay decodes one contract-day. When the store already holds more than the
// threshold of the day's transactions, their hashes come from the store instead
// of a new transaction stream.
func (r *Runner) DecodeDay(ctx context.Context, address string, day time.Time) error {
	address = model.NormalizeAddress(address)
	day = truncateDay(day)
	log := r.logger.With(zap.String("address", address), zap.String("day", day.Format(dayLayout)))

	count, err := r.index.TransactionCount(ctx, address, day)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}

	var hashes HashSet
	if count > r.cfg.TxThreshold {
		log.Info("fetch transactions from store", zap.Int("count", count))
		ids, err := r.index.TransactionHashes(ctx, address, day)
		if err != nil {
			return fmt.Errorf("load transaction hashes: %w", err)
		}
		hashes = NewHashSet(ids...)
	} else {
		log.Info("decode transactions")
		rows, err := r.source.TransactionStream(ctx, day, address)
		if err != nil {
			return fmt.Errorf("open transaction stream: %w", err)
		}
		hashes, err = r.processor.DecodeTransactionStream(ctx, rows)
		if err != nil {
			return err
		}
	}

	log.Info("decode events", zap.Int("transactions", hashes.Len()))
	events, err := r.source.EventStream(ctx, day)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	return r.processor.DecodeEventStream(ctx, events, hashes)
}

// DecodeRange decodes every day from from to to, inclusive, skipping the days
// already recorded as completed for address.
func (r *Runner) DecodeRange(ctx context.Context, address string, from, to time.Time) error {
	address = model.NormalizeAddress(address)
	days, err := SplitDays(from, to)
	if err != nil {
		return err
	}

	done, err := r.checkpoint.Completed(address)
	if err != nil {
		return err
	}
	pending := make([]time.Time, 0, len(days))
	for _, day := range days {
		if !done[day.Format(dayLayout)] {
			pending = append(pending, day)
		}
	}
	if skipped := len(days) - len(pending); skipped > 0 {
		r.logger.Info("skip completed days", zap.String("address", address), zap.Int("skipped", skipped))
	}
	if len(pending) == 0 {
		r.logger.Info("nothing to decode", zap.String("address", address))
		return nil
	}

	started := time.Now()
	for _, day := range pending {
		if err := r.DecodeDay(ctx, address, day); err != nil {
			return fmt.Errorf("decode %s: %w", day.Format(dayLayout), err)
		}
		if err := r.checkpoint.MarkDone(address, day); err != nil {
			return err
		}
	}
	r.logger.Info("range complete", zap.String("address", address), zap.Int("days", len(pending)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}
