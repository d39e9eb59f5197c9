package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrConflict is returned when an insert collides with an existing id or carries a
// stale revision.
var ErrConflict = errors.New("document conflict")

// Document types stored in the single document collection.
const (
	DocTypeContract    = "contract"
	DocTypeTransaction = "transaction"
	DocTypeEvent       = "event"
)

// Views over contract documents.
const (
	ViewRawContracts   = "raw-contracts"
	ViewTokenContracts = "token-contracts"
)

// Document is a key-addressed JSON document with an optimistic revision.
type Document struct {
	ID      string
	DocType string
	Rev     int64
	Body    json.RawMessage
}

// DocStore is the durable document store.
type DocStore interface {
	// Get returns the document with the given id; ok is false when it does not exist.
	Get(ctx context.Context, id string) (Document, bool, error)
	// Insert writes a document and returns it with its new revision. With upsert
	// false it fails with ErrConflict when the id exists. With upsert true and a
	// zero revision, the current revision is looked up first.
	Insert(ctx context.Context, doc Document, upsert bool) (Document, error)
	// Fetch returns the documents that exist for ids, omitting misses.
	Fetch(ctx context.Context, ids []string) ([]Document, error)

	TransactionCount(ctx context.Context, address string, day time.Time) (int, error)
	TransactionHashes(ctx context.Context, address string, day time.Time) ([]string, error)
	ContractIDs(ctx context.Context, view string) ([]string, error)

	Close() error
}

// NewDocument marshals body into a document.
func NewDocument(id, docType string, rev int64, body interface{}) (Document, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, DocType: docType, Rev: rev, Body: data}, nil
}

// DayPrefix is the block_timestamp prefix shared by every row of day.
func DayPrefix(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
