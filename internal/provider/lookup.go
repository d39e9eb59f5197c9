package provider

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"abiScope/internal/model"
)

// LookupToken returns token metadata for one address, or nil when the tokens table
// has no row for it.
func (c *Client) LookupToken(ctx context.Context, address string) (*model.Token, error) {
	sql := `SELECT address, symbol, name, decimals FROM ` + c.table("tokens") + `
WHERE address = @address LIMIT 1`
	tokens, err := c.readTokens(ctx, sql, bigquery.QueryParameter{Name: "address", Value: address})
	if err != nil || len(tokens) == 0 {
		return nil, err
	}
	return &tokens[0], nil
}

// LookupTokens returns the token rows found for addresses.
func (c *Client) LookupTokens(ctx context.Context, addresses []string) ([]model.Token, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	sql := `SELECT address, symbol, name, decimals FROM ` + c.table("tokens") + `
WHERE address IN UNNEST(@addresses)`
	return c.readTokens(ctx, sql, bigquery.QueryParameter{Name: "addresses", Value: addresses})
}

func (c *Client) readTokens(ctx context.Context, sql string, params ...bigquery.QueryParameter) ([]model.Token, error) {
	it, err := c.read(ctx, sql, params...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var tokens []model.Token
	for {
		var row tokenRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tokens iter: %w", err)
		}
		token := row.toToken()
		if _, dup := seen[token.Address]; dup {
			continue
		}
		seen[token.Address] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// LookupContract returns the base facts for one contract, or nil when unknown.
func (c *Client) LookupContract(ctx context.Context, address string) (*model.ContractFacts, error) {
	sql := `SELECT address, is_erc20, is_erc721, block_timestamp, block_number FROM ` + c.table("contracts") + `
WHERE address = @address LIMIT 1`
	facts, err := c.readContracts(ctx, sql, bigquery.QueryParameter{Name: "address", Value: address})
	if err != nil || len(facts) == 0 {
		return nil, err
	}
	return &facts[0], nil
}

// LookupContracts returns the base facts found for addresses.
func (c *Client) LookupContracts(ctx context.Context, addresses []string) ([]model.ContractFacts, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	sql := `SELECT address, is_erc20, is_erc721, block_timestamp, block_number FROM ` + c.table("contracts") + `
WHERE address IN UNNEST(@addresses)`
	return c.readContracts(ctx, sql, bigquery.QueryParameter{Name: "addresses", Value: addresses})
}

func (c *Client) readContracts(ctx context.Context, sql string, params ...bigquery.QueryParameter) ([]model.ContractFacts, error) {
	it, err := c.read(ctx, sql, params...)
	if err != nil {
		return nil, err
	}

	var facts []model.ContractFacts
	for {
		var row contractRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("contracts iter: %w", err)
		}
		facts = append(facts, row.toFacts())
	}
	return facts, nil
}
