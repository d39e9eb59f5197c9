package refcache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"abiScope/internal/metrics"
	"abiScope/internal/model"
)

// TokenProvider looks token metadata up in the analytical provider.
type TokenProvider interface {
	LookupToken(ctx context.Context, address string) (*model.Token, error)
	LookupTokens(ctx context.Context, addresses []string) ([]model.Token, error)
}

// TokenCache caches token metadata by lowercase address.
type TokenCache struct {
	mu       sync.RWMutex
	tokens   map[string]*model.Token
	provider TokenProvider
	logger   *zap.Logger
}

func NewTokenCache(provider TokenProvider, logger *zap.Logger) *TokenCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCache{
		tokens:   make(map[string]*model.Token),
		provider: provider,
		logger:   logger,
	}
}

// Init loads a token manifest. Entries overwrite cached tokens with the same address.
func (c *TokenCache) Init(path string) error {
	tokens, err := ReadTokenManifest(path)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		c.Put(token)
	}
	c.logger.Info("token manifest loaded", zap.String("file", path), zap.Int("tokens", len(tokens)))
	return nil
}

// Find returns the cached token or queries the provider for it. A provider miss is
// cached as a placeholder carrying only the address; a provider error is not cached.
func (c *TokenCache) Find(ctx context.Context, address string) (*model.Token, error) {
	address = model.NormalizeAddress(address)
	if token, ok := c.Get(address); ok {
		metrics.CacheLookupsTotal.WithLabelValues("token", metrics.TierMemory, metrics.ResultHit).Inc()
		return token, nil
	}
	if c.provider == nil {
		return nil, fmt.Errorf("token provider not configured")
	}

	token, err := c.provider.LookupToken(ctx, address)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("token", metrics.TierProvider, metrics.ResultError).Inc()
		return nil, fmt.Errorf("lookup token %s: %w", address, err)
	}
	if token == nil {
		metrics.CacheLookupsTotal.WithLabelValues("token", metrics.TierProvider, metrics.ResultMiss).Inc()
		token = &model.Token{Address: address}
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("token", metrics.TierProvider, metrics.ResultHit).Inc()
	}
	return c.Put(*token), nil
}

// AddAll fetches the uncached addresses in one provider query. Addresses the
// provider does not know are left uncached.
func (c *TokenCache) AddAll(ctx context.Context, addresses []string) error {
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
	if c.provider == nil {
		return fmt.Errorf("token provider not configured")
	}

	tokens, err := c.provider.LookupTokens(ctx, missing)
	if err != nil {
		return fmt.Errorf("lookup %d tokens: %w", len(missing), err)
	}
	for _, token := range tokens {
		c.Put(token)
	}
	c.logger.Debug("tokens added", zap.Int("requested", len(missing)), zap.Int("found", len(tokens)))
	return nil
}

// Get is a cache-only lookup.
func (c *TokenCache) Get(address string) (*model.Token, bool) {
	c.mu.RLock()
	token, ok := c.tokens[model.NormalizeAddress(address)]
	c.mu.RUnlock()
	return token, ok
}

// Put caches token and returns the cached copy.
func (c *TokenCache) Put(token model.Token) *model.Token {
	token.Address = model.NormalizeAddress(token.Address)
	if token.Decimals < 0 {
		token.Decimals = 0
	}
	stored := &token
	c.mu.Lock()
	c.tokens[token.Address] = stored
	c.mu.Unlock()
	return stored
}

func (c *TokenCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

func (c *TokenCache) Has(address string) bool {
	_, ok := c.Get(address)
	return ok
}
