package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"abiScope/internal/model"
)

// metadataABI covers decimals, symbol and name as most tokens declare them.
// legacyMetadataABI returns bytes32 for symbol and name, as early tokens
// (MKR, SAI) do. Both share selectors.
var (
	metadataABI = abi.ABI{Methods: map[string]abi.Method{
		"decimals": viewMethod("decimals", "uint8"),
		"symbol":   viewMethod("symbol", "string"),
		"name":     viewMethod("name", "string"),
	}}
	legacyMetadataABI = abi.ABI{Methods: map[string]abi.Method{
		"symbol": viewMethod("symbol", "bytes32"),
		"name":   viewMethod("name", "bytes32"),
	}}
)

// viewMethod builds a no-argument view method returning a single value of kind.
func viewMethod(name, kind string) abi.Method {
	typ, err := abi.NewType(kind, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", kind, err))
	}
	return abi.NewMethod(name, name, abi.Function, "view", false, false, nil, abi.Arguments{{Type: typ}})
}

// Caller is the eth_call surface token reads need.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenReader reads ERC20 metadata straight from the contract.
type TokenReader struct {
	caller Caller
	logger *zap.Logger
}

func NewTokenReader(caller Caller, logger *zap.Logger) *TokenReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenReader{caller: caller, logger: logger}
}

// FetchToken calls decimals, symbol and name on address. A contract that does not
// answer decimals is not treated as a token and yields nil.
func (r *TokenReader) FetchToken(ctx context.Context, address string) (*model.Token, error) {
	if r == nil || r.caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	target := common.HexToAddress(address)

	values, err := r.call(ctx, target, metadataABI, "decimals")
	if err != nil {
		r.logger.Debug("decimals call failed", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected decimals type %T", values[0])
	}

	token := &model.Token{Address: model.NormalizeAddress(address), Decimals: int(decimals)}
	token.Symbol = r.text(ctx, target, "symbol")
	token.Name = r.text(ctx, target, "name")
	return token, nil
}

// text reads a string getter, falling back to the bytes32 form.
func (r *TokenReader) text(ctx context.Context, target common.Address, method string) string {
	if values, err := r.call(ctx, target, metadataABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := r.call(ctx, target, legacyMetadataABI, method)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("address", target.Hex()), zap.Error(err))
		return ""
	}
	if raw, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(raw[:], "\x00"))
	}
	return ""
}

func (r *TokenReader) call(ctx context.Context, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}
