package model

import "fmt"

// RawLog is the minimal shape needed to decode an event log.
type RawLog struct {
	Address string
	Data    string
	Topics  []string
}

// DecodedEvent is a decoded event log.
type DecodedEvent struct {
	Name    string                 `json:"name"`
	Address string                 `json:"address"`
	Params  map[string]interface{} `json:"params"`
}

// Event is the persisted event document body.
//
// Once decoded, Topics holds the event name and Data holds the decoded params.
type Event struct {
	LogIndex         int64       `json:"log_index"`
	TransactionHash  string      `json:"transaction_hash"`
	TransactionIndex int64       `json:"transaction_index"`
	Address          string      `json:"address"`
	Data             interface{} `json:"data"`
	Topics           interface{} `json:"topics"`
	BlockTimestamp   string      `json:"block_timestamp"`
	BlockNumber      int64       `json:"block_number"`
	BlockHash        string      `json:"block_hash"`
}

// EventID returns the document id of an event.
func EventID(txHash string, logIndex int64) string {
	return fmt.Sprintf("%s-%d", txHash, logIndex)
}
