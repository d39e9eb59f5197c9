package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "abiscope",
		Short:        "Decode contract transactions and event logs from BigQuery",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode address [start-date [end-date]]",
		Short: "Decode a contract's transactions and events day by day",
		Long: "Decode the transactions sent to a contract and the event logs they emitted, one UTC day at a time.\n" +
			"Dates use YYYY-MM-DD and default to yesterday.",
		Args: cobra.RangeArgs(1, 3),
		RunE: runDecode,
	}

	addCommonFlags(decodeCmd)
	decodeCmd.Flags().Int("tx-threshold", 1000, "stored transaction count above which a day is not re-streamed")
	decodeCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	decodeCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	decodeCmd.Flags().String("rejects", "", "optional JSONL file for rows that could not be stored")

	root.AddCommand(decodeCmd)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Fill in contract records listed by a store view",
		Args:  cobra.NoArgs,
		RunE:  runUpdate,
	}

	addCommonFlags(updateCmd)
	updateCmd.Flags().String("view", "raw-contracts", "store view listing the contracts (raw-contracts, token-contracts)")
	updateCmd.Flags().Int("batch-size", 200, "contracts per batch")

	root.AddCommand(updateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "postgres", "document store (postgres, badger, memory)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("badger-dir", "./data/badger", "badger data directory")
	cmd.Flags().String("bq-project", "", "BigQuery project billed for queries")
	cmd.Flags().String("bq-credentials", "", "service account key file, application default credentials when empty")
	cmd.Flags().String("bq-location", "", "BigQuery job location")
	cmd.Flags().String("bq-dataset", "bigquery-public-data.crypto_ethereum", "dataset holding the chain tables")
	cmd.Flags().Int("max-retries", 3, "maximum retries of transient BigQuery failures")
	cmd.Flags().Duration("retry-backoff", time.Second, "initial BigQuery retry backoff")
	cmd.Flags().String("etherscan-key", "", "Etherscan API key, registry lookups are off when empty")
	cmd.Flags().String("etherscan-url", "https://api.etherscan.io/api", "Etherscan API URL")
	cmd.Flags().Float64("etherscan-rps", 5, "maximum Etherscan calls per second")
	cmd.Flags().String("rpc", "", "optional EVM RPC URL for token metadata missing from BigQuery")
	cmd.Flags().String("token-info", "", "token manifest JSON file")
	cmd.Flags().String("contract-abis", "", "directory of <address>.json ABI files")
	cmd.Flags().StringSlice("standard-abis", nil, "baseline ABI files, built-in ERC20 and ERC721 when empty")
	cmd.Flags().String("metrics-addr", "", "listen address for /metrics, disabled when empty")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
