package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client is a read-only RPC connection used for token metadata calls.
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	chainID *big.Int
}

// NewClient dials rpcURL and fails fast when the node does not answer eth_chainId.
func NewClient(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	eth := ethclient.NewClient(raw)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	logger.Info("rpc connected", zap.String("chain_id", chainID.String()))
	return &Client{rpc: raw, eth: eth, chainID: chainID}, nil
}

// ChainID returns the id reported by the node at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// CallContract performs an eth_call at blockNumber, or at the latest block when nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}
