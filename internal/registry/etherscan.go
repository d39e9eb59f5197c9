package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"abiScope/internal/metrics"
	"abiScope/internal/model"
)

// DefaultURL is the Etherscan API endpoint.
const DefaultURL = "https://api.etherscan.io/api"

// DefaultRate is the free-tier call rate per second.
const DefaultRate = 5

var (
	// ErrRateLimited is returned when the service rejects a call for exceeding its quota.
	ErrRateLimited = errors.New("registry rate limit reached")
	// ErrNotVerified is returned when the contract has no published ABI.
	ErrNotVerified = errors.New("contract source not verified")
)

// Config configures the Etherscan client.
type Config struct {
	URL     string
	APIKey  string
	Rate    float64
	Timeout time.Duration
}

// Client calls the Etherscan contract and token modules at a fixed maximum rate.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// GetABI returns the published ABI of address. An unverified contract yields
// ErrNotVerified.
func (c *Client) GetABI(ctx context.Context, address string) (model.ABI, error) {
	c.logger.Info("fetch abi from registry", zap.String("address", address))
	env, err := c.call(ctx, "contract", "getabi", address)
	metrics.ObserveRemote("etherscan", err)
	if err != nil {
		return nil, err
	}

	var text string
	if err := json.Unmarshal(env.Result, &text); err != nil {
		return nil, fmt.Errorf("getabi %s: unexpected result: %w", address, err)
	}
	if env.Status != "1" {
		return nil, classify("getabi", address, env.Message, text)
	}

	var abi model.ABI
	if err := json.Unmarshal([]byte(text), &abi); err != nil {
		return nil, fmt.Errorf("getabi %s: parse abi: %w", address, err)
	}
	if abi == nil {
		abi = model.ABI{}
	}
	return abi, nil
}

type tokenInfo struct {
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	Symbol          string `json:"symbol"`
	Divisor         string `json:"divisor"`
}

// GetTokenInfo returns token metadata for address, or nil when the registry has none.
// The endpoint needs a paid plan.
func (c *Client) GetTokenInfo(ctx context.Context, address string) (*model.Token, error) {
	c.logger.Info("fetch token info from registry", zap.String("address", address))
	env, err := c.call(ctx, "token", "tokeninfo", address)
	metrics.ObserveRemote("etherscan", err)
	if err != nil {
		return nil, err
	}

	if env.Status != "1" {
		var text string
		_ = json.Unmarshal(env.Result, &text)
		err := classify("tokeninfo", address, env.Message, text)
		if errors.Is(err, ErrNotVerified) {
			return nil, nil
		}
		return nil, err
	}

	var infos []tokenInfo
	if err := json.Unmarshal(env.Result, &infos); err != nil {
		return nil, fmt.Errorf("tokeninfo %s: unexpected result: %w", address, err)
	}
	if len(infos) == 0 {
		return nil, nil
	}

	info := infos[0]
	token := &model.Token{
		Address: model.NormalizeAddress(address),
		Symbol:  info.Symbol,
		Name:    info.TokenName,
	}
	if d, err := strconv.Atoi(info.Divisor); err == nil && d >= 0 {
		token.Decimals = d
	}
	return token, nil
}

func (c *Client) call(ctx context.Context, module, action, address string) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("module", module)
	query.Set("action", action)
	query.Set("address", address)
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", action, address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s %s: %w", action, address, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s %s: http status %d", action, address, resp.StatusCode)
	}
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s %s: invalid content-type %q", action, address, resp.Header.Get("Content-Type"))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", action, address, err)
	}
	return &env, nil
}

func classify(action, address, message, result string) error {
	lower := strings.ToLower(message + " " + result)
	switch {
	case strings.Contains(lower, "rate limit"):
		return fmt.Errorf("%s %s: %w", action, address, ErrRateLimited)
	case strings.Contains(lower, "not verified"), strings.Contains(lower, "no data found"):
		return fmt.Errorf("%s %s: %w", action, address, ErrNotVerified)
	default:
		return fmt.Errorf("%s %s: %s: %s", action, address, message, result)
	}
}
