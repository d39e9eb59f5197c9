package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"abiScope/internal/storage"
)

// Store keeps documents in a map. Nothing survives the process.
type Store struct {
	mu   sync.RWMutex
	docs map[string]storage.Document

	gets    int
	inserts int
}

func New() *Store {
	return &Store{docs: make(map[string]storage.Document)}
}

func (s *Store) Get(_ context.Context, id string) (storage.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *Store) Insert(_ context.Context, doc storage.Document, upsert bool) (storage.Document, error) {
	if doc.ID == "" {
		return storage.Document{}, fmt.Errorf("document id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++

	cur, ok := s.docs[doc.ID]
	if upsert && doc.Rev == 0 && ok {
		doc.Rev = cur.Rev
	}
	if (doc.Rev == 0 && ok) || (doc.Rev != 0 && (!ok || cur.Rev != doc.Rev)) {
		return storage.Document{}, fmt.Errorf("insert %s: %w", doc.ID, storage.ErrConflict)
	}

	doc.Rev++
	doc.Body = append(json.RawMessage(nil), doc.Body...)
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *Store) Fetch(_ context.Context, ids []string) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]storage.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Store) TransactionCount(ctx context.Context, address string, day time.Time) (int, error) {
	ids, err := s.TransactionHashes(ctx, address, day)
	return len(ids), err
}

func (s *Store) TransactionHashes(_ context.Context, address string, day time.Time) ([]string, error) {
	prefix := storage.DayPrefix(day)
	return s.filter(storage.DocTypeTransaction, func(body map[string]interface{}) bool {
		to, _ := body["to_address"].(string)
		ts, _ := body["block_timestamp"].(string)
		return to == address && strings.HasPrefix(ts, prefix)
	}), nil
}

func (s *Store) ContractIDs(_ context.Context, view string) ([]string, error) {
	switch view {
	case storage.ViewRawContracts:
		return s.filter(storage.DocTypeContract, func(body map[string]interface{}) bool {
			return body["block_number"] == nil
		}), nil
	case storage.ViewTokenContracts:
		return s.filter(storage.DocTypeContract, func(body map[string]interface{}) bool {
			erc20, _ := body["is_erc20"].(bool)
			symbol, _ := body["symbol"].(string)
			return erc20 || symbol != ""
		}), nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Calls returns how many Get and Insert calls the store has served.
func (s *Store) Calls() (gets, inserts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gets, s.inserts
}

func (s *Store) filter(docType string, match func(map[string]interface{}) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, doc := range s.docs {
		if doc.DocType != docType {
			continue
		}
		var body map[string]interface{}
		if err := json.Unmarshal(doc.Body, &body); err != nil {
			continue
		}
		if match(body) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
