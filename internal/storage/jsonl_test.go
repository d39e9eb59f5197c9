package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"abiScope/internal/model"
)

func readRejects(t *testing.T, path string) []model.Reject {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.Reject
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.Reject
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, r)
	}
	return got
}

func TestJsonlRejectsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rejects.jsonl")
	sink, err := OpenJsonlRejects(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := sink.PutRejects([]model.Reject{{Stream: "transaction", ID: "0xaa", Error: "conflict"}}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := sink.PutRejects([]model.Reject{{Stream: "event", ID: "0xaa-1", Error: "conflict"}}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if sink.Written() != 2 {
		t.Fatalf("expected 2 written, got %d", sink.Written())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := readRejects(t, path)
	if len(got) != 2 {
		t.Fatalf("expected 2 rejects, got %d", len(got))
	}
	if got[1].ID != "0xaa-1" || got[1].Stream != "event" {
		t.Fatalf("unexpected reject: %+v", got[1])
	}
}

func TestJsonlRejectsReopenKeepsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	for _, id := range []string{"0x01", "0x02"} {
		sink, err := OpenJsonlRejects(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := sink.PutRejects([]model.Reject{{Stream: "transaction", ID: id}}); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	got := readRejects(t, path)
	if len(got) != 2 || got[0].ID != "0x01" || got[1].ID != "0x02" {
		t.Fatalf("unexpected rejects: %+v", got)
	}
}

func TestJsonlRejectsClosed(t *testing.T) {
	sink, err := OpenJsonlRejects(filepath.Join(t.TempDir(), "rejects.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := sink.PutRejects([]model.Reject{{ID: "x"}}); err == nil {
		t.Fatalf("expected error writing to a closed sink")
	}
}

func TestJsonlRejectsNilSink(t *testing.T) {
	var sink *JsonlRejects
	if err := sink.PutRejects([]model.Reject{{ID: "x"}}); err != nil {
		t.Fatalf("nil sink should be a no-op: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
