package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"abiScope/internal/storage"
)

var docPrefix = []byte("doc/")

// envelope is the stored value of a document key.
type envelope struct {
	DocType string          `json:"doc_type"`
	Rev     int64           `json:"rev"`
	Body    json.RawMessage `json:"body"`
}

// viewFields are the body fields the views look at.
type viewFields struct {
	ToAddress      string          `json:"to_address"`
	BlockTimestamp string          `json:"block_timestamp"`
	BlockNumber    json.RawMessage `json:"block_number"`
	IsERC20        bool            `json:"is_erc20"`
	Symbol         string          `json:"symbol"`
}

// Store is an embedded document store on Badger. Views scan the key space.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenInMemory opens a store that keeps everything in memory.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func docKey(id string) []byte {
	return append(append([]byte{}, docPrefix...), id...)
}

func readEnvelope(txn *badger.Txn, key []byte) (envelope, bool, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return envelope{}, false, nil
		}
		return envelope{}, false, err
	}
	var env envelope
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &env)
	})
	if err != nil {
		return envelope{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return env, true, nil
}

// Get returns a document by id.
func (s *Store) Get(_ context.Context, id string) (storage.Document, bool, error) {
	var doc storage.Document
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		env, ok, err := readEnvelope(txn, docKey(id))
		if err != nil || !ok {
			return err
		}
		found = true
		doc = storage.Document{ID: id, DocType: env.DocType, Rev: env.Rev, Body: env.Body}
		return nil
	})
	if err != nil {
		return storage.Document{}, false, err
	}
	return doc, found, nil
}

// Insert writes a document, honoring the revision it carries.
func (s *Store) Insert(_ context.Context, doc storage.Document, upsert bool) (storage.Document, error) {
	if doc.ID == "" {
		return storage.Document{}, fmt.Errorf("document id required")
	}
	key := docKey(doc.ID)
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, ok, err := readEnvelope(txn, key)
		if err != nil {
			return err
		}
		if upsert && doc.Rev == 0 && ok {
			doc.Rev = cur.Rev
		}
		switch {
		case doc.Rev == 0 && ok:
			return storage.ErrConflict
		case doc.Rev != 0 && (!ok || cur.Rev != doc.Rev):
			return storage.ErrConflict
		}

		doc.Rev++
		value, err := json.Marshal(envelope{DocType: doc.DocType, Rev: doc.Rev, Body: doc.Body})
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, badger.ErrConflict) {
			return storage.Document{}, fmt.Errorf("insert %s: %w", doc.ID, storage.ErrConflict)
		}
		return storage.Document{}, err
	}
	return doc, nil
}

// Fetch returns the documents for ids in request order, omitting misses.
func (s *Store) Fetch(_ context.Context, ids []string) ([]storage.Document, error) {
	docs := make([]storage.Document, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			env, ok, err := readEnvelope(txn, docKey(id))
			if err != nil {
				return err
			}
			if ok {
				docs = append(docs, storage.Document{ID: id, DocType: env.DocType, Rev: env.Rev, Body: env.Body})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// TransactionCount counts stored transactions sent to address on day.
func (s *Store) TransactionCount(ctx context.Context, address string, day time.Time) (int, error) {
	ids, err := s.TransactionHashes(ctx, address, day)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TransactionHashes lists stored transaction ids sent to address on day.
func (s *Store) TransactionHashes(_ context.Context, address string, day time.Time) ([]string, error) {
	prefix := storage.DayPrefix(day)
	return s.scan(storage.DocTypeTransaction, func(f viewFields) bool {
		return f.ToAddress == address && strings.HasPrefix(f.BlockTimestamp, prefix)
	})
}

// ContractIDs lists contract ids selected by a named view.
func (s *Store) ContractIDs(_ context.Context, view string) ([]string, error) {
	switch view {
	case storage.ViewRawContracts:
		return s.scan(storage.DocTypeContract, func(f viewFields) bool {
			return len(f.BlockNumber) == 0 || string(f.BlockNumber) == "null"
		})
	case storage.ViewTokenContracts:
		return s.scan(storage.DocTypeContract, func(f viewFields) bool {
			return f.IsERC20 || f.Symbol != ""
		})
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func (s *Store) scan(docType string, match func(viewFields) bool) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(docPrefix); it.ValidForPrefix(docPrefix); it.Next() {
			item := it.Item()
			var env envelope
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &env) }); err != nil {
				return err
			}
			if env.DocType != docType {
				continue
			}
			var fields viewFields
			if err := json.Unmarshal(env.Body, &fields); err != nil {
				continue
			}
			if match(fields) {
				ids = append(ids, string(item.Key()[len(docPrefix):]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
