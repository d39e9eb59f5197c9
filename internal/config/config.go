package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreMemory   = "memory"
)

// Config holds the settings shared by every command: where documents live, how
// the provider and the registry are reached, and the local reference files.
type Config struct {
	Store     string
	PGDSN     string
	BadgerDir string

	BQProject     string
	BQCredentials string
	BQLocation    string
	BQDataset     string
	MaxRetries    int
	RetryBackoff  time.Duration

	EtherscanKey string
	EtherscanURL string
	EtherscanRPS float64
	RPCURL       string

	TokenInfo    string
	ContractABIs string
	StandardABIs []string

	MetricsAddr string
	LogLevel    string
}

// Validate checks that the selected backends are fully configured.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for store %q", c.Store)
		}
	case StoreBadger:
		if c.BadgerDir == "" {
			return fmt.Errorf("badger dir is required for store %q", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.BQProject == "" {
		return fmt.Errorf("bigquery project is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	if c.EtherscanRPS < 0 {
		return fmt.Errorf("etherscan rps must not be negative")
	}
	return nil
}

// newViper merges defaults, config file, environment variables, and flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ABISCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", StorePostgres)
	v.SetDefault("badger-dir", "./data/badger")
	v.SetDefault("bq-dataset", "bigquery-public-data.crypto_ethereum")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", time.Second)
	v.SetDefault("etherscan-url", "https://api.etherscan.io/api")
	v.SetDefault("etherscan-rps", 5.0)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Config {
	return Config{
		Store:         strings.ToLower(v.GetString("store")),
		PGDSN:         v.GetString("pg-dsn"),
		BadgerDir:     v.GetString("badger-dir"),
		BQProject:     v.GetString("bq-project"),
		BQCredentials: v.GetString("bq-credentials"),
		BQLocation:    v.GetString("bq-location"),
		BQDataset:     v.GetString("bq-dataset"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		EtherscanKey:  v.GetString("etherscan-key"),
		EtherscanURL:  v.GetString("etherscan-url"),
		EtherscanRPS:  v.GetFloat64("etherscan-rps"),
		RPCURL:        v.GetString("rpc"),
		TokenInfo:     v.GetString("token-info"),
		ContractABIs:  v.GetString("contract-abis"),
		StandardABIs:  getStringSlice(v, "standard-abis"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
