package refcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"abiScope/internal/metrics"
	"abiScope/internal/model"
	"abiScope/internal/storage"
)

// ContractProvider looks base contract facts up in the analytical provider.
type ContractProvider interface {
	LookupContract(ctx context.Context, address string) (*model.ContractFacts, error)
	LookupContracts(ctx context.Context, addresses []string) ([]model.ContractFacts, error)
}

// ABIRegistry is the public contract registry.
type ABIRegistry interface {
	Enabled() bool
	GetABI(ctx context.Context, address string) (model.ABI, error)
}

// DocStore is the part of the durable store the cache reads and writes.
type DocStore interface {
	Get(ctx context.Context, id string) (storage.Document, bool, error)
	Insert(ctx context.Context, doc storage.Document, upsert bool) (storage.Document, error)
	Fetch(ctx context.Context, ids []string) ([]storage.Document, error)
}

// Config wires the collaborators of a ReferenceCache.
type Config struct {
	Store    DocStore
	Provider ContractProvider
	Tokens   *TokenCache
	// Registry is optional.
	Registry ABIRegistry
	Logger   *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// ReferenceCache caches contract records by lowercase address, resolving misses
// through the durable store and then the analytical provider.
//
// Records are shared with callers and mutated in place; the cache is meant to be
// driven by one pipeline at a time.
type ReferenceCache struct {
	mu        sync.RWMutex
	contracts map[string]*model.Contract

	tokens   *TokenCache
	store    DocStore
	provider ContractProvider
	registry ABIRegistry
	now      func() time.Time
	logger   *zap.Logger
}

func New(cfg Config) *ReferenceCache {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenCache(nil, logger)
	}
	return &ReferenceCache{
		contracts: make(map[string]*model.Contract),
		tokens:    tokens,
		store:     cfg.Store,
		provider:  cfg.Provider,
		registry:  cfg.Registry,
		now:       now,
		logger:    logger,
	}
}

// Tokens returns the wrapped token cache.
func (c *ReferenceCache) Tokens() *TokenCache {
	return c.tokens
}

// Find resolves a contract from memory, then the store, then the provider. With
// abiOnly the provider is not consulted. A miss everywhere returns nil and caches
// nothing.
func (c *ReferenceCache) Find(ctx context.Context, address string, abiOnly bool) (*model.Contract, error) {
	address = model.NormalizeAddress(address)
	if con, ok := c.Get(address); ok {
		c.lookup(metrics.TierMemory, metrics.ResultHit)
		return con, nil
	}

	con, err := c.load(ctx, address)
	if err != nil {
		c.lookup(metrics.TierStore, metrics.ResultError)
		return nil, err
	}
	if con != nil {
		c.lookup(metrics.TierStore, metrics.ResultHit)
		return c.Put(con), nil
	}
	c.lookup(metrics.TierStore, metrics.ResultMiss)

	if abiOnly {
		return nil, nil
	}
	if c.provider == nil {
		return nil, fmt.Errorf("contract provider not configured")
	}

	facts, err := c.provider.LookupContract(ctx, address)
	if err != nil {
		c.lookup(metrics.TierProvider, metrics.ResultError)
		return nil, fmt.Errorf("lookup contract %s: %w", address, err)
	}
	if facts == nil {
		c.lookup(metrics.TierProvider, metrics.ResultMiss)
		return nil, nil
	}
	c.lookup(metrics.TierProvider, metrics.ResultHit)

	if _, err := c.tokens.Find(ctx, address); err != nil {
		c.logger.Warn("token lookup failed", zap.String("address", address), zap.Error(err))
	}
	con = c.Put(model.NewContractFromFacts(*facts))
	c.persistLogged(ctx, con)
	return con, nil
}

// AddAll warms the cache for addresses: memory hits are skipped, then one store
// multi-get, then one bulk token query and one bulk contract query for the rest.
// Addresses found nowhere are dropped. Provider errors abort the batch.
func (c *ReferenceCache) AddAll(ctx context.Context, addresses []string) error {
	var missing []string
	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		address = model.NormalizeAddress(address)
		if _, dup := seen[address]; dup || c.Has(address) {
			continue
		}
		seen[address] = struct{}{}
		missing = append(missing, address)
	}
	if len(missing) == 0 {
		return nil
	}

	if c.store != nil {
		docs, err := c.store.Fetch(ctx, missing)
		if err != nil {
			return fmt.Errorf("fetch %d contracts: %w", len(missing), err)
		}
		for _, doc := range docs {
			con, err := contractFromDocument(doc)
			if err != nil {
				c.logger.Warn("skip stored contract", zap.String("address", doc.ID), zap.Error(err))
				continue
			}
			c.Put(con)
		}
		missing = c.uncached(missing)
	}
	c.logger.Debug("contracts not in store", zap.Int("count", len(missing)))
	if len(missing) == 0 {
		return nil
	}
	if c.provider == nil {
		return fmt.Errorf("contract provider not configured")
	}

	if err := c.tokens.AddAll(ctx, missing); err != nil {
		return err
	}
	facts, err := c.provider.LookupContracts(ctx, missing)
	if err != nil {
		return fmt.Errorf("lookup %d contracts: %w", len(missing), err)
	}
	for _, f := range facts {
		con := c.Put(model.NewContractFromFacts(f))
		c.persistLogged(ctx, con)
	}
	c.logger.Info("contracts added", zap.Int("requested", len(missing)), zap.Int("found", len(facts)))
	return nil
}

// Get is a cache-only lookup that refreshes the record's last use.
func (c *ReferenceCache) Get(address string) (*model.Contract, bool) {
	address = model.NormalizeAddress(address)
	c.mu.Lock()
	defer c.mu.Unlock()
	con, ok := c.contracts[address]
	if ok {
		con.LastUsed = c.now()
	}
	return con, ok
}

// Put caches con, filling token fields from the token cache when it has no symbol.
func (c *ReferenceCache) Put(con *model.Contract) *model.Contract {
	if con == nil || con.Address == "" {
		c.logger.Warn("cannot cache contract without address")
		return nil
	}
	con.Address = model.NormalizeAddress(con.Address)
	con.LastUsed = c.now()
	if con.Symbol == "" {
		if token, ok := c.tokens.Get(con.Address); ok {
			con.SetTokenInfo(token)
		}
	}
	c.mu.Lock()
	c.contracts[con.Address] = con
	c.mu.Unlock()
	return con
}

func (c *ReferenceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contracts)
}

func (c *ReferenceCache) Has(address string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.contracts[model.NormalizeAddress(address)]
	return ok
}

// Remove evicts one address and reports whether it was cached.
func (c *ReferenceCache) Remove(address string) bool {
	address = model.NormalizeAddress(address)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.contracts[address]
	delete(c.contracts, address)
	return ok
}

func (c *ReferenceCache) Clear() {
	c.mu.Lock()
	c.contracts = make(map[string]*model.Contract)
	c.mu.Unlock()
}

// ClearOld evicts records unused for longer than retention and returns the
// remaining size. A non-positive retention clears everything. Stored copies are
// untouched.
func (c *ReferenceCache) ClearOld(retention time.Duration) int {
	if retention <= 0 {
		c.Clear()
		return 0
	}
	cutoff := c.now().Add(-retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	for address, con := range c.contracts {
		if con.LastUsed.Before(cutoff) {
			delete(c.contracts, address)
		}
	}
	return len(c.contracts)
}

func (c *ReferenceCache) uncached(addresses []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, address := range addresses {
		if _, ok := c.contracts[address]; !ok {
			out = append(out, address)
		}
	}
	return out
}

func (c *ReferenceCache) load(ctx context.Context, address string) (*model.Contract, error) {
	if c.store == nil {
		return nil, nil
	}
	doc, ok, err := c.store.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", address, err)
	}
	if !ok {
		return nil, nil
	}
	return contractFromDocument(doc)
}

// persist writes con with its last known revision and records the new one.
func (c *ReferenceCache) persist(ctx context.Context, con *model.Contract) error {
	if c.store == nil {
		return nil
	}
	body, err := json.Marshal(con)
	if err != nil {
		return fmt.Errorf("encode contract %s: %w", con.Address, err)
	}
	saved, err := c.store.Insert(ctx, storage.Document{
		ID:      con.Address,
		DocType: storage.DocTypeContract,
		Rev:     con.StorageRevision,
		Body:    body,
	}, true)
	if err != nil {
		return err
	}
	con.StorageID = saved.ID
	con.StorageRevision = saved.Rev
	return nil
}

func (c *ReferenceCache) persistLogged(ctx context.Context, con *model.Contract) {
	if err := c.persist(ctx, con); err != nil {
		c.logger.Warn("persist contract failed", zap.String("address", con.Address), zap.Error(err))
	}
}

func (c *ReferenceCache) lookup(tier, result string) {
	metrics.CacheLookupsTotal.WithLabelValues("contract", tier, result).Inc()
}

func contractFromDocument(doc storage.Document) (*model.Contract, error) {
	var con model.Contract
	if err := json.Unmarshal(doc.Body, &con); err != nil {
		return nil, fmt.Errorf("decode contract %s: %w", doc.ID, err)
	}
	if con.Address == "" {
		con.Address = doc.ID
	}
	con.StorageID = doc.ID
	con.StorageRevision = doc.Rev
	return &con, nil
}
