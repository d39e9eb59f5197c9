package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"abiScope/internal/metrics"
	"abiScope/internal/model"
	"abiScope/internal/provider"
	"abiScope/internal/storage"
)

const (
	streamTransactions = "transactions"
	streamEvents       = "events"
)

// ABIResolver resolves the ABI of a contract.
type ABIResolver interface {
	FetchABI(ctx context.Context, address, localFile string, abiOnly bool) (model.ABI, error)
}

// Decoder decodes payloads with the installed ABIs.
type Decoder interface {
	SetABI(address string, abi model.ABI) error
	DecodeData(input string) (*model.Call, error)
	DecodeEvent(log model.RawLog) (*model.DecodedEvent, error)
}

// Persister writes documents.
type Persister interface {
	Insert(ctx context.Context, doc storage.Document, upsert bool) (storage.Document, error)
}

// RejectSink receives rows that could not be persisted.
type RejectSink interface {
	PutRejects(rejects []model.Reject) error
}

// Processor decodes provider streams one row at a time and persists each row.
//
// The ABI is only re-resolved when a row's contract differs from the previous
// row's, so streams should arrive grouped by contract.
type Processor struct {
	resolver ABIResolver
	decoder  Decoder
	store    Persister
	rejects  RejectSink
	logger   *zap.Logger
}

func NewProcessor(resolver ABIResolver, decoder Decoder, store Persister, rejects RejectSink, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		resolver: resolver,
		decoder:  decoder,
		store:    store,
		rejects:  rejects,
		logger:   logger,
	}
}

// DecodeTransactionStream decodes and stores every transaction row and returns
// the hashes seen. Hashes are collected before any other handling, including for
// rows skipped because their receipt failed.
func (p *Processor) DecodeTransactionStream(ctx context.Context, rows provider.TransactionIterator) (HashSet, error) {
	hashes := make(HashSet)
	current := ""
	persisted := 0

	for {
		row, err := rows.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return hashes, fmt.Errorf("transaction stream: %w", err)
		}

		hashes.Add(row.Hash)
		if row.Failed() {
			p.logger.Debug("ignore failed transaction", zap.String("hash", row.Hash))
			p.count(streamTransactions, "skipped")
			continue
		}

		tx := prepareTransaction(row)
		if tx.ToAddress != "" && tx.ToAddress != current {
			current = tx.ToAddress
			p.resolve(ctx, current, false)
		}
		p.decodeTransaction(&tx)

		if p.persist(ctx, streamTransactions, storage.DocTypeTransaction, tx.Hash, tx.ToAddress, tx.BlockNumber, tx) {
			persisted++
		}
	}

	p.logger.Info("transaction stream done", zap.Int("transactions", hashes.Len()), zap.Int("persisted", persisted))
	return hashes, nil
}

// DecodeEventStream decodes and stores the event rows whose transaction is in
// relevant. Other rows are dropped before any lookup.
func (p *Processor) DecodeEventStream(ctx context.Context, rows provider.EventIterator, relevant HashSet) error {
	current := ""
	total, persisted := 0, 0

	for {
		row, err := rows.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("event stream: %w", err)
		}
		total++

		if !relevant.Has(row.TransactionHash) {
			p.count(streamEvents, "filtered")
			continue
		}

		evt := prepareEvent(row)
		if evt.Address != "" && evt.Address != current {
			current = evt.Address
			p.resolve(ctx, current, true)
		}
		p.decodeEvent(&evt, row)

		id := model.EventID(evt.TransactionHash, evt.LogIndex)
		if p.persist(ctx, streamEvents, storage.DocTypeEvent, id, evt.Address, evt.BlockNumber, evt) {
			persisted++
		}
	}

	p.logger.Info("event stream done", zap.Int("events", total), zap.Int("persisted", persisted))
	return nil
}

// resolve installs the ABI of address. Failures leave the previous ABI in place.
func (p *Processor) resolve(ctx context.Context, address string, abiOnly bool) {
	abi, err := p.resolver.FetchABI(ctx, address, "", abiOnly)
	if err != nil {
		p.logger.Warn("failed to resolve abi", zap.String("address", address), zap.Error(err))
		return
	}
	if err := p.decoder.SetABI(address, abi); err != nil {
		p.logger.Warn("failed to set abi", zap.String("address", address), zap.Error(err))
	}
}

func (p *Processor) decodeTransaction(tx *model.Transaction) {
	input, _ := tx.Input.(string)
	if input == "" {
		return
	}
	call, err := p.decoder.DecodeData(input)
	if err != nil {
		p.logger.Warn("failed to decode transaction", zap.String("hash", tx.Hash), zap.Error(err))
		p.count(streamTransactions, "decode_error")
		return
	}
	if call == nil {
		p.count(streamTransactions, "raw")
		return
	}
	tx.Input = call
	p.count(streamTransactions, "decoded")
}

// decodeEvent replaces topics with the event name and data with its params.
func (p *Processor) decodeEvent(evt *model.Event, row *provider.EventRow) {
	if row.Data == "" && len(row.Topics) == 0 {
		return
	}
	decoded, err := p.decoder.DecodeEvent(model.RawLog{Address: row.Address, Data: row.Data, Topics: row.Topics})
	if err != nil {
		p.logger.Warn("failed to decode event", zap.String("hash", evt.TransactionHash),
			zap.Int64("log_index", evt.LogIndex), zap.Error(err))
		p.count(streamEvents, "decode_error")
		return
	}
	if decoded == nil {
		p.count(streamEvents, "raw")
		return
	}
	evt.Topics = decoded.Name
	evt.Data = decoded.Params
	p.count(streamEvents, "decoded")
}

// persist inserts without upsert, so a duplicate id fails and the row is dropped.
func (p *Processor) persist(ctx context.Context, stream, docType, id, address string, blockNumber int64, body interface{}) bool {
	data, err := json.Marshal(body)
	if err == nil {
		_, err = p.store.Insert(ctx, storage.Document{ID: id, DocType: docType, Body: data}, false)
	}
	if err == nil {
		p.count(stream, "persisted")
		return true
	}

	status := "store_error"
	if errors.Is(err, storage.ErrConflict) {
		status = "duplicate"
	}
	p.count(stream, status)
	p.logger.Warn("failed db insert", zap.String("stream", stream), zap.String("id", id), zap.Error(err))

	if p.rejects != nil {
		reject := model.Reject{Stream: stream, ID: id, Address: address, BlockNumber: blockNumber, Error: err.Error()}
		if err := p.rejects.PutRejects([]model.Reject{reject}); err != nil {
			p.logger.Warn("write reject failed", zap.String("id", id), zap.Error(err))
		}
	}
	return false
}

func (p *Processor) count(stream, status string) {
	metrics.StreamRowsTotal.WithLabelValues(stream, status).Inc()
}
