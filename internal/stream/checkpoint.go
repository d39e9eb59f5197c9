package stream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"abiScope/internal/model"
)

const dayLayout = "2006-01-02"

// Checkpoint lists the fully decoded days of a contract.
type Checkpoint struct {
	CompletedDays []string `json:"completed_days"`
	UpdatedAt     string   `json:"updated_at"`
}

type checkpointFile struct {
	Contracts map[string]Checkpoint `json:"contracts"`
}

// CheckpointStore persists per-contract checkpoints to one JSON file.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

// Completed returns the days already decoded for address, keyed by YYYY-MM-DD.
func (c *CheckpointStore) Completed(address string) (map[string]bool, error) {
	done := make(map[string]bool)
	if !c.enabled {
		return done, nil
	}
	file, err := c.read()
	if err != nil {
		return nil, err
	}
	for _, day := range file.Contracts[model.NormalizeAddress(address)].CompletedDays {
		if _, err := time.Parse(dayLayout, day); err != nil {
			return nil, fmt.Errorf("parse checkpoint day: %w", err)
		}
		done[day] = true
	}
	return done, nil
}

// MarkDone adds day to the completed days of address.
func (c *CheckpointStore) MarkDone(address string, day time.Time) error {
	if !c.enabled {
		return nil
	}
	file, err := c.read()
	if err != nil {
		return err
	}
	address = model.NormalizeAddress(address)
	key := day.UTC().Format(dayLayout)

	cp := file.Contracts[address]
	i := sort.SearchStrings(cp.CompletedDays, key)
	if i == len(cp.CompletedDays) || cp.CompletedDays[i] != key {
		cp.CompletedDays = append(cp.CompletedDays, "")
		copy(cp.CompletedDays[i+1:], cp.CompletedDays[i:])
		cp.CompletedDays[i] = key
	}
	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	file.Contracts[address] = cp

	return c.write(file)
}

func (c *CheckpointStore) write(file checkpointFile) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

func (c *CheckpointStore) read() (checkpointFile, error) {
	file := checkpointFile{Contracts: make(map[string]Checkpoint)}
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return file, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return file, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse checkpoint: %w", err)
	}
	if file.Contracts == nil {
		file.Contracts = make(map[string]Checkpoint)
	}
	return file, nil
}
