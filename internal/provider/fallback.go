package provider

import (
	"context"

	"go.uber.org/zap"

	"abiScope/internal/model"
)

// TokenLookup is the token half of the analytical provider.
type TokenLookup interface {
	LookupToken(ctx context.Context, address string) (*model.Token, error)
	LookupTokens(ctx context.Context, addresses []string) ([]model.Token, error)
}

// TokenFetcher reads token metadata from the chain itself.
type TokenFetcher interface {
	FetchToken(ctx context.Context, address string) (*model.Token, error)
}

// ChainTokens answers single-token misses of the primary lookup from the chain.
// Bulk lookups go to the primary only.
type ChainTokens struct {
	primary TokenLookup
	chain   TokenFetcher
	logger  *zap.Logger
}

func NewChainTokens(primary TokenLookup, chain TokenFetcher, logger *zap.Logger) *ChainTokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainTokens{primary: primary, chain: chain, logger: logger}
}

func (c *ChainTokens) LookupToken(ctx context.Context, address string) (*model.Token, error) {
	token, err := c.primary.LookupToken(ctx, address)
	if err != nil || token != nil || c.chain == nil {
		return token, err
	}

	token, err = c.chain.FetchToken(ctx, address)
	if err != nil {
		c.logger.Warn("chain token lookup failed", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	return token, nil
}

func (c *ChainTokens) LookupTokens(ctx context.Context, addresses []string) ([]model.Token, error) {
	return c.primary.LookupTokens(ctx, addresses)
}
