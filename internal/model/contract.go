package model

import (
	"encoding/json"
	"time"
)

// ABI is an ordered list of raw ABI entries.
//
// A nil ABI means the interface has not been resolved yet. An empty, non-nil ABI
// means it was resolved and the contract publishes no interface.
type ABI []json.RawMessage

// Resolved reports whether the ABI has been looked up.
func (a ABI) Resolved() bool {
	return a != nil
}

// Contract is the cached reference record for a contract address.
type Contract struct {
	Address        string    `json:"address"`
	IsERC20        bool      `json:"is_erc20"`
	IsERC721       bool      `json:"is_erc721"`
	BlockTimestamp string    `json:"block_timestamp,omitempty"`
	BlockNumber    int64     `json:"block_number,omitempty"`
	ABI            ABI       `json:"abi"`
	Symbol         string    `json:"symbol,omitempty"`
	Name           string    `json:"name,omitempty"`
	Decimals       int       `json:"decimals,omitempty"`
	LastUsed       time.Time `json:"last_used"`

	// Storage metadata, set once the record has been written to the document store.
	StorageID       string `json:"-"`
	StorageRevision int64  `json:"-"`
}

// ContractFacts are the base facts the analytical provider knows about a contract.
type ContractFacts struct {
	Address        string
	IsERC20        bool
	IsERC721       bool
	BlockTimestamp time.Time
	BlockNumber    int64
}

// NewContractFromFacts builds a contract record from provider facts.
func NewContractFromFacts(facts ContractFacts) *Contract {
	c := &Contract{
		Address:     NormalizeAddress(facts.Address),
		IsERC20:     facts.IsERC20,
		IsERC721:    facts.IsERC721,
		BlockNumber: facts.BlockNumber,
	}
	if !facts.BlockTimestamp.IsZero() {
		c.BlockTimestamp = FormatTimestamp(facts.BlockTimestamp)
	}
	return c
}

// HasABI reports whether the contract carries a non-empty ABI.
func (c *Contract) HasABI() bool {
	return c != nil && len(c.ABI) > 0
}

// SetTokenInfo copies token metadata onto the contract.
func (c *Contract) SetTokenInfo(token *Token) {
	if c == nil || token == nil {
		return
	}
	c.Symbol = token.Symbol
	c.Name = token.Name
	c.Decimals = token.Decimals
}

// SetABI attaches an ABI and marks the record as used.
func (c *Contract) SetABI(abi ABI, now time.Time) {
	c.ABI = abi
	c.LastUsed = now
}

// FormatTimestamp renders provider timestamps the way they are persisted.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05.000Z")
}
