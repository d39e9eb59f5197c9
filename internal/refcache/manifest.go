package refcache

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"abiScope/internal/model"
)

// ReadTokenManifest parses a file of [address, [symbol, name, decimals]] pairs.
func ReadTokenManifest(path string) ([]model.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token manifest: %w", err)
	}
	return ParseTokenManifest(data)
}

// ParseTokenManifest parses manifest content. Decimals may be a number or a string.
func ParseTokenManifest(data []byte) ([]model.Token, error) {
	var entries [][2]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse token manifest: %w", err)
	}

	tokens := make([]model.Token, 0, len(entries))
	for i, entry := range entries {
		var address string
		if err := json.Unmarshal(entry[0], &address); err != nil || address == "" {
			return nil, fmt.Errorf("token manifest entry %d: invalid address", i)
		}
		var fields []interface{}
		if len(entry[1]) > 0 {
			if err := json.Unmarshal(entry[1], &fields); err != nil {
				return nil, fmt.Errorf("token manifest entry %d: %w", i, err)
			}
		}

		token := model.Token{Address: model.NormalizeAddress(address)}
		if len(fields) > 0 {
			token.Symbol, _ = fields[0].(string)
		}
		if len(fields) > 1 {
			token.Name, _ = fields[1].(string)
		}
		if len(fields) > 2 {
			token.Decimals = manifestDecimals(fields[2])
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func manifestDecimals(v interface{}) int {
	switch d := v.(type) {
	case float64:
		if d > 0 {
			return int(d)
		}
	case string:
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
