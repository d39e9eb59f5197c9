package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"abiScope/internal/storage"
)

// newTestStore connects to ABISCOPE_TEST_PG_DSN. Tests are skipped without it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ABISCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ABISCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

// uniqueID keeps runs against a shared database apart.
func uniqueID(t *testing.T, name string) string {
	return fmt.Sprintf("%s-%s-%d", t.Name(), name, time.Now().UnixNano())
}

func TestInsertRevisions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := uniqueID(t, "tx")

	doc, _ := storage.NewDocument(id, storage.DocTypeTransaction, 0, map[string]string{"hash": id})
	saved, err := s.Insert(ctx, doc, false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Rev != 1 {
		t.Fatalf("expected rev 1, got %d", saved.Rev)
	}
	if _, err := s.Insert(ctx, doc, false); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	saved, err = s.Insert(ctx, doc, true)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.Rev != 2 {
		t.Fatalf("expected rev 2, got %d", saved.Rev)
	}

	doc.Rev = 1
	if _, err := s.Insert(ctx, doc, true); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale revision should conflict, got %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Rev != 2 || got.DocType != storage.DocTypeTransaction {
		t.Fatalf("document mismatch: %+v", got)
	}
}

func TestFetchAndViews(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	address := uniqueID(t, "0xcontract")

	var ids []string
	for i, ts := range []string{"2021-10-01T09:00:00.000Z", "2021-10-01T23:59:59.000Z", "2021-10-02T00:00:00.000Z"} {
		id := uniqueID(t, fmt.Sprintf("tx%d", i))
		ids = append(ids, id)
		doc, _ := storage.NewDocument(id, storage.DocTypeTransaction, 0, map[string]string{
			"hash":            id,
			"to_address":      address,
			"block_timestamp": ts,
		})
		if _, err := s.Insert(ctx, doc, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	docs, err := s.Fetch(ctx, []string{ids[2], "missing", ids[0]})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != ids[2] || docs[1].ID != ids[0] {
		t.Fatalf("fetch order mismatch: %+v", docs)
	}

	day := time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)
	count, err := s.TransactionCount(ctx, address, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 transactions, got %d", count)
	}

	raw := uniqueID(t, "raw")
	token := uniqueID(t, "token")
	for id, body := range map[string]map[string]interface{}{
		raw:   {"address": raw, "abi": []string{}},
		token: {"address": token, "is_erc20": true, "block_number": 12, "symbol": "UNI"},
	} {
		doc, _ := storage.NewDocument(id, storage.DocTypeContract, 0, body)
		if _, err := s.Insert(ctx, doc, true); err != nil {
			t.Fatalf("insert contract: %v", err)
		}
	}

	rawIDs, err := s.ContractIDs(ctx, storage.ViewRawContracts)
	if err != nil {
		t.Fatalf("raw view: %v", err)
	}
	if !contains(rawIDs, raw) || contains(rawIDs, token) {
		t.Fatalf("raw view mismatch: %v", rawIDs)
	}
	tokenIDs, err := s.ContractIDs(ctx, storage.ViewTokenContracts)
	if err != nil {
		t.Fatalf("token view: %v", err)
	}
	if !contains(tokenIDs, token) || contains(tokenIDs, raw) {
		t.Fatalf("token view mismatch: %v", tokenIDs)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
