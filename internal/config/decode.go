package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02"

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	Config

	TxThreshold       int
	Checkpoint        string
	CheckpointEnabled bool
	Rejects           string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"tx-threshold":       1000,
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"rejects":            "",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		Config:            loadCommon(v),
		TxThreshold:       v.GetInt("tx-threshold"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		Rejects:           v.GetString("rejects"),
	}
	if cfg.TxThreshold < 0 {
		return DecodeConfig{}, fmt.Errorf("tx-threshold must not be negative")
	}
	return cfg, nil
}

// ParseDate parses a YYYY-MM-DD day in UTC. An empty value means the day before now.
func ParseDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		y, m, d := now.UTC().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(dateLayout, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", input, err)
	}
	return day, nil
}

// ParseDateRange resolves the optional start and end dates of a decode run. A
// missing end date defaults to yesterday, like a missing start date.
func ParseDateRange(args []string, now time.Time) (time.Time, time.Time, error) {
	var start, end string
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		end = args[1]
	}
	from, err := ParseDate(start, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDate(end, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			to.Format(dateLayout), from.Format(dateLayout))
	}
	return from, to, nil
}
