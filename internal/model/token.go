package model

import "strings"

// Token captures ERC20-style token metadata.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals int    `json:"decimals"`
}

// NormalizeAddress lowercases an address and adds the 0x prefix when missing.
func NormalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return address
}
