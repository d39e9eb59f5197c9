package model

// Reject records a row that could not be persisted.
type Reject struct {
	Stream      string `json:"stream"`
	ID          string `json:"id"`
	Address     string `json:"address"`
	BlockNumber int64  `json:"block_number"`
	Error       string `json:"error"`
}
