package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// UpdateConfig holds configuration for the update command.
type UpdateConfig struct {
	Config

	View      string
	BatchSize int
}

// LoadUpdate merges config file, environment variables, and flags into UpdateConfig.
func LoadUpdate(cfgFile string, flags *pflag.FlagSet) (UpdateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"view":       "raw-contracts",
		"batch-size": 200,
	})
	if err != nil {
		return UpdateConfig{}, err
	}

	cfg := UpdateConfig{
		Config:    loadCommon(v),
		View:      v.GetString("view"),
		BatchSize: v.GetInt("batch-size"),
	}
	if cfg.BatchSize <= 0 {
		return UpdateConfig{}, fmt.Errorf("batch-size must be positive")
	}
	return cfg, nil
}
