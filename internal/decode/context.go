package decode

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"abiScope/internal/model"
)

// Context holds the baseline ABIs and at most one contract ABI in an engine.
// Baselines are registered first so their parameter names win on shared keys.
type Context struct {
	engine    *Engine
	baselines []Baseline

	currentAddress string
	current        *abi.ABI

	logger *zap.Logger
}

// NewContext registers baselines, in order, into engine.
func NewContext(engine *Engine, baselines []Baseline, logger *zap.Logger) *Context {
	if engine == nil {
		engine = NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Context{engine: engine, baselines: baselines, logger: logger}
	c.registerBaselines()
	return c
}

// CurrentAddress is the address whose ABI is installed, or empty.
func (c *Context) CurrentAddress() string {
	return c.currentAddress
}

// Engine returns the underlying registration table.
func (c *Context) Engine() *Engine {
	return c.engine
}

// SetABI installs the ABI of address in place of the current one. It does nothing
// when address is already installed or raw is empty. A raw ABI that fails to parse
// leaves the current installation untouched.
func (c *Context) SetABI(address string, raw model.ABI) error {
	address = model.NormalizeAddress(address)
	if address == c.currentAddress || len(raw) == 0 {
		return nil
	}

	parsed, err := ParseABI(raw)
	if err != nil {
		return fmt.Errorf("parse abi of %s: %w", address, err)
	}

	if c.current != nil {
		c.engine.Unregister(c.current)
	}
	c.registerBaselines()
	c.engine.Register(address, parsed)

	c.currentAddress = address
	c.current = parsed
	c.logger.Debug("abi installed", zap.String("address", address),
		zap.Int("methods", len(parsed.Methods)), zap.Int("events", len(parsed.Events)))
	return nil
}

// DecodeData decodes hex call input. It returns nil when no ABI matches.
func (c *Context) DecodeData(input string) (*model.Call, error) {
	if input == "" || strings.EqualFold(input, "0x") {
		return nil, nil
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return c.engine.DecodeMethod(data)
}

// DecodeEvent decodes an event log. It returns nil when no ABI matches.
func (c *Context) DecodeEvent(log model.RawLog) (*model.DecodedEvent, error) {
	return c.engine.DecodeLog(log)
}

func (c *Context) registerBaselines() {
	for _, b := range c.baselines {
		c.engine.Register(b.Name, b.ABI)
	}
}
