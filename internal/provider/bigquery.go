package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"abiScope/internal/metrics"
)

// DefaultDataset is the public Ethereum dataset.
const DefaultDataset = "bigquery-public-data.crypto_ethereum"

// Config selects the BigQuery project and dataset.
type Config struct {
	Project     string
	Credentials string
	Location    string
	Dataset     string
	// MaxRetries and RetryBackoff bound the retries of transient read failures.
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client is the analytical provider backed by BigQuery.
type Client struct {
	bq       *bigquery.Client
	location string
	dataset  string
	retries  int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewClient opens a BigQuery client. Without a credentials file, application default
// credentials are used.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("bigquery project is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	bq, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}

	dataset := cfg.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &Client{
		bq:       bq,
		location: cfg.Location,
		dataset:  dataset,
		retries:  cfg.MaxRetries,
		backoff:  cfg.RetryBackoff,
		logger:   logger,
	}, nil
}

// Close releases the BigQuery client.
func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func (c *Client) table(name string) string {
	return "`" + c.dataset + "." + name + "`"
}

func (c *Client) read(ctx context.Context, sql string, params ...bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	q := c.bq.Query(sql)
	q.Location = c.location
	q.Parameters = params
	c.logger.Debug("bigquery statement", zap.String("sql", strings.Join(strings.Fields(sql), " ")))

	var it *bigquery.RowIterator
	err := withRetry(ctx, c.retries, c.backoff, func(ctx context.Context) error {
		var err error
		it, err = q.Read(ctx)
		metrics.ObserveRemote("bigquery", err)
		if err != nil && retryable(err) {
			c.logger.Warn("bigquery read failed, retrying", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bigquery read: %w", err)
	}
	return it, nil
}
