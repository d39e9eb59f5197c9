package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"abiScope/internal/model"
)

// Baseline is an ABI applied to every contract.
type Baseline struct {
	Name string
	ABI  *abi.ABI
}

const erc20ABIJSON = `[
  {"constant": true, "inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "type": "function"},
  {"constant": false, "inputs": [{"name": "_spender", "type": "address"}, {"name": "_value", "type": "uint256"}], "name": "approve", "outputs": [{"name": "", "type": "bool"}], "type": "function"},
  {"constant": true, "inputs": [], "name": "totalSupply", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
  {"constant": false, "inputs": [{"name": "_from", "type": "address"}, {"name": "_to", "type": "address"}, {"name": "_value", "type": "uint256"}], "name": "transferFrom", "outputs": [{"name": "", "type": "bool"}], "type": "function"},
  {"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "type": "function"},
  {"constant": true, "inputs": [{"name": "_owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "balance", "type": "uint256"}], "type": "function"},
  {"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "type": "function"},
  {"constant": false, "inputs": [{"name": "_to", "type": "address"}, {"name": "_value", "type": "uint256"}], "name": "transfer", "outputs": [{"name": "", "type": "bool"}], "type": "function"},
  {"constant": true, "inputs": [{"name": "_owner", "type": "address"}, {"name": "_spender", "type": "address"}], "name": "allowance", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "owner", "type": "address"}, {"indexed": true, "name": "spender", "type": "address"}, {"indexed": false, "name": "value", "type": "uint256"}], "name": "Approval", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "from", "type": "address"}, {"indexed": true, "name": "to", "type": "address"}, {"indexed": false, "name": "value", "type": "uint256"}], "name": "Transfer", "type": "event"}
]`

const erc721ABIJSON = `[
  {"inputs": [{"name": "_owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "_tokenId", "type": "uint256"}], "name": "ownerOf", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "_from", "type": "address"}, {"name": "_to", "type": "address"}, {"name": "_tokenId", "type": "uint256"}, {"name": "data", "type": "bytes"}], "name": "safeTransferFrom", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "_from", "type": "address"}, {"name": "_to", "type": "address"}, {"name": "_tokenId", "type": "uint256"}], "name": "safeTransferFrom", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "_from", "type": "address"}, {"name": "_to", "type": "address"}, {"name": "_tokenId", "type": "uint256"}], "name": "transferFrom", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "_approved", "type": "address"}, {"name": "_tokenId", "type": "uint256"}], "name": "approve", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "_operator", "type": "address"}, {"name": "_approved", "type": "bool"}], "name": "setApprovalForAll", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "_tokenId", "type": "uint256"}], "name": "getApproved", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "_owner", "type": "address"}, {"name": "_operator", "type": "address"}], "name": "isApprovedForAll", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "_from", "type": "address"}, {"indexed": true, "name": "_to", "type": "address"}, {"indexed": true, "name": "_tokenId", "type": "uint256"}], "name": "Transfer", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "_owner", "type": "address"}, {"indexed": true, "name": "_approved", "type": "address"}, {"indexed": true, "name": "_tokenId", "type": "uint256"}], "name": "Approval", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "_owner", "type": "address"}, {"indexed": true, "name": "_operator", "type": "address"}, {"indexed": false, "name": "_approved", "type": "bool"}], "name": "ApprovalForAll", "type": "event"}
]`

var (
	standardOnce sync.Once
	standard     []Baseline
	standardErr  error
)

// StandardBaselines returns the built-in ERC20 and ERC721 ABIs, ERC20 first.
func StandardBaselines() ([]Baseline, error) {
	standardOnce.Do(func() {
		erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
		if err != nil {
			standardErr = fmt.Errorf("parse erc20 abi: %w", err)
			return
		}
		erc721, err := abi.JSON(strings.NewReader(erc721ABIJSON))
		if err != nil {
			standardErr = fmt.Errorf("parse erc721 abi: %w", err)
			return
		}
		standard = []Baseline{{Name: "erc20", ABI: &erc20}, {Name: "erc721", ABI: &erc721}}
	})
	return standard, standardErr
}

// LoadBaselines reads baseline ABIs from files in the given order. Each baseline
// is named after its file.
func LoadBaselines(paths []string) ([]Baseline, error) {
	baselines := make([]Baseline, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read baseline abi: %w", err)
		}
		var raw model.ABI
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse baseline abi %s: %w", path, err)
		}
		parsed, err := ParseABI(raw)
		if err != nil {
			return nil, fmt.Errorf("parse baseline abi %s: %w", path, err)
		}
		baselines = append(baselines, Baseline{
			Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			ABI:  parsed,
		})
	}
	return baselines, nil
}

// ParseABI parses raw ABI entries.
func ParseABI(raw model.ABI) (*abi.ABI, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
