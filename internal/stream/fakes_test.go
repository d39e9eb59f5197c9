package stream

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	"abiScope/internal/model"
	"abiScope/internal/provider"
)

type transactionRows struct {
	rows []*provider.TransactionRow
	err  error
}

func (s *transactionRows) Next() (*provider.TransactionRow, error) {
	if len(s.rows) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, iterator.Done
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

type eventRows struct {
	rows []*provider.EventRow
}

func (s *eventRows) Next() (*provider.EventRow, error) {
	if len(s.rows) == 0 {
		return nil, iterator.Done
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

type fakeResolver struct {
	abis  map[string]model.ABI
	err   error
	calls []string
	modes []bool
}

func (r *fakeResolver) FetchABI(_ context.Context, address, _ string, abiOnly bool) (model.ABI, error) {
	r.calls = append(r.calls, address)
	r.modes = append(r.modes, abiOnly)
	if r.err != nil {
		return nil, r.err
	}
	return r.abis[address], nil
}

type fakeRejects struct {
	rejects []model.Reject
}

func (f *fakeRejects) PutRejects(rejects []model.Reject) error {
	f.rejects = append(f.rejects, rejects...)
	return nil
}

type fakeSource struct {
	transactions map[string][]*provider.TransactionRow
	events       map[string][]*provider.EventRow
	txCalls      int
	eventCalls   int
	err          error
}

func (s *fakeSource) TransactionStream(_ context.Context, day time.Time, _ string) (provider.TransactionIterator, error) {
	s.txCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &transactionRows{rows: s.transactions[day.Format(dayLayout)]}, nil
}

func (s *fakeSource) EventStream(_ context.Context, day time.Time) (provider.EventIterator, error) {
	s.eventCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &eventRows{rows: s.events[day.Format(dayLayout)]}, nil
}

var errBoom = errors.New("boom")
