package stream

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"abiScope/internal/model"
	"abiScope/internal/provider"
)

// prepareTransaction flattens a provider row into the persisted shape.
func prepareTransaction(row *provider.TransactionRow) model.Transaction {
	return model.Transaction{
		Hash:                   row.Hash,
		Nonce:                  row.Nonce,
		TransactionIndex:       row.TransactionIndex,
		FromAddress:            model.NormalizeAddress(row.FromAddress),
		ToAddress:              model.NormalizeAddress(row.ToAddress.StringVal),
		Value:                  numericString(row.Value),
		Gas:                    row.Gas,
		GasPrice:               nullInt(row.GasPrice),
		Input:                  row.Input,
		ReceiptGasUsed:         nullInt(row.ReceiptGasUsed),
		ReceiptContractAddress: model.NormalizeAddress(row.ReceiptContractAddress.StringVal),
		ReceiptStatus:          nullInt(row.ReceiptStatus),
		TransactionType:        nullInt(row.TransactionType),
		BlockTimestamp:         model.FormatTimestamp(row.BlockTimestamp),
		BlockNumber:            row.BlockNumber,
		BlockHash:              row.BlockHash,
	}
}

// prepareEvent flattens a provider row into the persisted shape, keeping the raw
// data and topics.
func prepareEvent(row *provider.EventRow) model.Event {
	topics := row.Topics
	if topics == nil {
		topics = []string{}
	}
	return model.Event{
		LogIndex:         row.LogIndex,
		TransactionHash:  row.TransactionHash,
		TransactionIndex: row.TransactionIndex,
		Address:          model.NormalizeAddress(row.Address),
		Data:             row.Data,
		Topics:           topics,
		BlockTimestamp:   model.FormatTimestamp(row.BlockTimestamp),
		BlockNumber:      row.BlockNumber,
		BlockHash:        row.BlockHash,
	}
}

// numericString renders a NUMERIC column exactly.
func numericString(v *big.Rat) string {
	if v == nil {
		return "0"
	}
	if v.IsInt() {
		return decimal.NewFromBigInt(v.Num(), 0).String()
	}
	d, err := decimal.NewFromString(v.FloatString(9))
	if err != nil {
		return v.FloatString(9)
	}
	return d.String()
}

func nullInt(v bigquery.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
