package model

// Call is a decoded method invocation.
type Call struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// Transaction is the persisted transaction document body.
//
// Input holds the raw hex payload, or a *Call once decoded.
type Transaction struct {
	Hash                   string      `json:"hash"`
	Nonce                  int64       `json:"nonce"`
	TransactionIndex       int64       `json:"transaction_index"`
	FromAddress            string      `json:"from_address"`
	ToAddress              string      `json:"to_address,omitempty"`
	Value                  string      `json:"value"`
	Gas                    int64       `json:"gas"`
	GasPrice               *int64      `json:"gas_price,omitempty"`
	Input                  interface{} `json:"input"`
	ReceiptGasUsed         *int64      `json:"receipt_gas_used,omitempty"`
	ReceiptContractAddress string      `json:"receipt_contract_address,omitempty"`
	ReceiptStatus          *int64      `json:"receipt_status,omitempty"`
	TransactionType        *int64      `json:"transaction_type,omitempty"`
	BlockTimestamp         string      `json:"block_timestamp"`
	BlockNumber            int64       `json:"block_number"`
	BlockHash              string      `json:"block_hash"`
}
