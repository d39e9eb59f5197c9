package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"abiScope/internal/metrics"
	"abiScope/internal/model"
	"abiScope/internal/registry"
)

var abiFileName = regexp.MustCompile(`^(0x)?[0-9a-f]{40}$`)

// Init loads the token manifest and then the per-address ABI files in abiDir.
// Unreadable files are logged and skipped.
func (c *ReferenceCache) Init(ctx context.Context, tokenManifest, abiDir string) error {
	if tokenManifest != "" {
		if err := c.tokens.Init(tokenManifest); err != nil {
			c.logger.Warn("token manifest skipped", zap.String("file", tokenManifest), zap.Error(err))
		}
	}
	if abiDir == "" {
		return nil
	}

	entries, err := os.ReadDir(abiDir)
	if err != nil {
		return fmt.Errorf("read abi dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		c.cacheLocalABI(ctx, filepath.Join(abiDir, entry.Name()))
	}
	return nil
}

// cacheLocalABI attaches the ABI in file to the contract named by the file. An
// existing non-empty ABI is kept.
func (c *ReferenceCache) cacheLocalABI(ctx context.Context, file string) {
	if filepath.Ext(file) != ".json" {
		return
	}
	address := strings.ToLower(strings.TrimSuffix(filepath.Base(file), ".json"))
	if !abiFileName.MatchString(address) {
		return
	}
	address = model.NormalizeAddress(address)

	abi, err := readABIFile(file)
	if err != nil {
		c.logger.Warn("local abi skipped", zap.String("file", file), zap.Error(err))
		return
	}
	if len(abi) == 0 {
		return
	}

	con, err := c.Find(ctx, address, false)
	if err != nil {
		c.logger.Warn("contract lookup failed for local abi", zap.String("address", address), zap.Error(err))
	}
	if con == nil {
		con = c.Put(&model.Contract{Address: address})
	}
	if con.HasABI() {
		return
	}

	c.logger.Info("add contract abi", zap.String("address", address), zap.String("file", file))
	con.SetABI(abi, c.now())
	c.persistLogged(ctx, con)
}

// FetchABI returns the ABI of address. A contract whose ABI was already resolved,
// even to an empty list, is answered from the cache. Otherwise the registry is
// asked first and localFile is the fallback; the outcome is recorded on the
// contract, an empty list when nothing was found. Without a registry key or a
// local file nothing is resolved and nil is returned.
func (c *ReferenceCache) FetchABI(ctx context.Context, address, localFile string, abiOnly bool) (model.ABI, error) {
	address = model.NormalizeAddress(address)
	con, err := c.Find(ctx, address, abiOnly)
	if err != nil {
		return nil, err
	}
	if con != nil && con.ABI.Resolved() {
		return con.ABI, nil
	}

	if !c.registryEnabled() && localFile == "" {
		return nil, nil
	}
	if con == nil {
		con = c.Put(&model.Contract{Address: address})
	}

	abi, ok := c.resolveABI(ctx, address, localFile)
	if !ok {
		return nil, nil
	}
	if abi == nil {
		abi = model.ABI{}
	}
	con.SetABI(abi, c.now())
	c.persistLogged(ctx, con)
	return con.ABI, nil
}

// resolveABI asks the registry, then reads localFile. ok is false when the registry
// failed for a transient reason and no file supplied an ABI, so nothing should be
// recorded.
func (c *ReferenceCache) resolveABI(ctx context.Context, address, localFile string) (model.ABI, bool) {
	var abi model.ABI
	transient := false

	if c.registryEnabled() {
		fetched, err := c.registry.GetABI(ctx, address)
		switch {
		case err == nil:
			abi = fetched
			c.lookup(metrics.TierRegistry, metrics.ResultHit)
		case errors.Is(err, registry.ErrNotVerified):
			c.lookup(metrics.TierRegistry, metrics.ResultMiss)
		default:
			transient = true
			c.lookup(metrics.TierRegistry, metrics.ResultError)
			c.logger.Warn("registry abi fetch failed", zap.String("address", address), zap.Error(err))
		}
	}

	if len(abi) == 0 && localFile != "" {
		fromFile, err := readABIFile(localFile)
		if err != nil {
			c.logger.Warn("read abi file failed", zap.String("file", localFile), zap.Error(err))
		} else if len(fromFile) > 0 {
			c.lookup(metrics.TierFile, metrics.ResultHit)
			return fromFile, true
		}
	}
	if len(abi) == 0 && transient {
		return nil, false
	}
	return abi, true
}

func readABIFile(path string) (model.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var abi model.ABI
	if err := json.Unmarshal(data, &abi); err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return abi, nil
}

func (c *ReferenceCache) registryEnabled() bool {
	return c.registry != nil && c.registry.Enabled()
}
