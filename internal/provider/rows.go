package provider

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"

	"abiScope/internal/model"
)

// TransactionRow is a row of the transactions table.
type TransactionRow struct {
	Hash                   string              `bigquery:"hash"`
	Nonce                  int64               `bigquery:"nonce"`
	TransactionIndex       int64               `bigquery:"transaction_index"`
	FromAddress            string              `bigquery:"from_address"`
	ToAddress              bigquery.NullString `bigquery:"to_address"`
	Value                  *big.Rat            `bigquery:"value"`
	Gas                    int64               `bigquery:"gas"`
	GasPrice               bigquery.NullInt64  `bigquery:"gas_price"`
	Input                  string              `bigquery:"input"`
	ReceiptGasUsed         bigquery.NullInt64  `bigquery:"receipt_gas_used"`
	ReceiptContractAddress bigquery.NullString `bigquery:"receipt_contract_address"`
	ReceiptStatus          bigquery.NullInt64  `bigquery:"receipt_status"`
	TransactionType        bigquery.NullInt64  `bigquery:"transaction_type"`
	BlockTimestamp         time.Time           `bigquery:"block_timestamp"`
	BlockNumber            int64               `bigquery:"block_number"`
	BlockHash              string              `bigquery:"block_hash"`
}

// Failed reports whether the receipt marks the transaction as reverted.
// Pre-Byzantium rows carry no status and are not treated as failed.
func (r *TransactionRow) Failed() bool {
	return r.ReceiptStatus.Valid && r.ReceiptStatus.Int64 == 0
}

const transactionColumns = `hash, nonce, transaction_index, from_address, to_address, value, gas, gas_price,
  input, receipt_gas_used, receipt_contract_address, receipt_status, transaction_type,
  block_timestamp, block_number, block_hash`

// EventRow is a row of the logs table.
type EventRow struct {
	LogIndex         int64     `bigquery:"log_index"`
	TransactionHash  string    `bigquery:"transaction_hash"`
	TransactionIndex int64     `bigquery:"transaction_index"`
	Address          string    `bigquery:"address"`
	Data             string    `bigquery:"data"`
	Topics           []string  `bigquery:"topics"`
	BlockTimestamp   time.Time `bigquery:"block_timestamp"`
	BlockNumber      int64     `bigquery:"block_number"`
	BlockHash        string    `bigquery:"block_hash"`
}

const eventColumns = `log_index, transaction_hash, transaction_index, address, data, topics,
  block_timestamp, block_number, block_hash`

type tokenRow struct {
	Address  string              `bigquery:"address"`
	Symbol   bigquery.NullString `bigquery:"symbol"`
	Name     bigquery.NullString `bigquery:"name"`
	Decimals bigquery.NullString `bigquery:"decimals"`
}

// toToken converts a tokens row. The public table stores decimals as text; anything
// unparseable counts as zero.
func (r tokenRow) toToken() model.Token {
	token := model.Token{
		Address: model.NormalizeAddress(r.Address),
		Symbol:  r.Symbol.StringVal,
		Name:    r.Name.StringVal,
	}
	if r.Decimals.Valid {
		if d, err := strconv.Atoi(strings.TrimSpace(r.Decimals.StringVal)); err == nil && d >= 0 {
			token.Decimals = d
		}
	}
	return token
}

type contractRow struct {
	Address        string             `bigquery:"address"`
	IsERC20        bigquery.NullBool  `bigquery:"is_erc20"`
	IsERC721       bigquery.NullBool  `bigquery:"is_erc721"`
	BlockTimestamp time.Time          `bigquery:"block_timestamp"`
	BlockNumber    bigquery.NullInt64 `bigquery:"block_number"`
}

func (r contractRow) toFacts() model.ContractFacts {
	return model.ContractFacts{
		Address:        model.NormalizeAddress(r.Address),
		IsERC20:        r.IsERC20.Valid && r.IsERC20.Bool,
		IsERC721:       r.IsERC721.Valid && r.IsERC721.Bool,
		BlockTimestamp: r.BlockTimestamp,
		BlockNumber:    r.BlockNumber.Int64,
	}
}
