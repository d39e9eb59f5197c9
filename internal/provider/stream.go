package provider

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
)

// TransactionIterator yields transaction rows until iterator.Done.
type TransactionIterator interface {
	Next() (*TransactionRow, error)
}

// EventIterator yields event rows until iterator.Done.
type EventIterator interface {
	Next() (*EventRow, error)
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// TransactionStream streams the transactions sent to address on day, ordered by
// block and position.
func (c *Client) TransactionStream(ctx context.Context, day time.Time, address string) (TransactionIterator, error) {
	start, end := dayBounds(day)
	sql := `SELECT ` + transactionColumns + ` FROM ` + c.table("transactions") + `
WHERE block_timestamp >= @start_ts AND block_timestamp < @end_ts AND to_address = @address
ORDER BY block_number, transaction_index`
	it, err := c.read(ctx, sql,
		bigquery.QueryParameter{Name: "start_ts", Value: start},
		bigquery.QueryParameter{Name: "end_ts", Value: end},
		bigquery.QueryParameter{Name: "address", Value: address},
	)
	if err != nil {
		return nil, err
	}
	return &transactionIterator{it: it}, nil
}

// EventStream streams every event log of day, ordered by block and log index.
func (c *Client) EventStream(ctx context.Context, day time.Time) (EventIterator, error) {
	start, end := dayBounds(day)
	sql := `SELECT ` + eventColumns + ` FROM ` + c.table("logs") + `
WHERE block_timestamp >= @start_ts AND block_timestamp < @end_ts
ORDER BY block_number, log_index`
	it, err := c.read(ctx, sql,
		bigquery.QueryParameter{Name: "start_ts", Value: start},
		bigquery.QueryParameter{Name: "end_ts", Value: end},
	)
	if err != nil {
		return nil, err
	}
	return &eventIterator{it: it}, nil
}

type transactionIterator struct {
	it *bigquery.RowIterator
}

func (t *transactionIterator) Next() (*TransactionRow, error) {
	var row TransactionRow
	if err := t.it.Next(&row); err != nil {
		return nil, err
	}
	return &row, nil
}

type eventIterator struct {
	it *bigquery.RowIterator
}

func (e *eventIterator) Next() (*EventRow, error) {
	var row EventRow
	if err := e.it.Next(&row); err != nil {
		return nil, err
	}
	return &row, nil
}
