package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestContractABIResolvedState(t *testing.T) {
	empty := &Contract{Address: "0x1111111111111111111111111111111111111111", ABI: ABI{}}
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Contract
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !decoded.ABI.Resolved() {
		t.Fatalf("empty abi should stay resolved")
	}
	if len(decoded.ABI) != 0 {
		t.Fatalf("expected empty abi, got %d entries", len(decoded.ABI))
	}

	unresolved := &Contract{Address: "0x2222222222222222222222222222222222222222"}
	data, err = json.Marshal(unresolved)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	decoded = Contract{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.ABI.Resolved() {
		t.Fatalf("missing abi should stay unresolved")
	}
}

func TestContractStorageMetadataNotInBody(t *testing.T) {
	c := &Contract{Address: "0x1", StorageID: "0x1", StorageRevision: 3}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := fields["StorageID"]; ok {
		t.Fatalf("storage id leaked into body")
	}
	if _, ok := fields["abi"]; !ok {
		t.Fatalf("abi key must always be present")
	}
}

func TestNewContractFromFacts(t *testing.T) {
	ts := time.Date(2021, 10, 1, 12, 30, 0, 0, time.UTC)
	c := NewContractFromFacts(ContractFacts{
		Address:        "0x6B175474E89094C44DA98B954EEDEAC495271D0F",
		IsERC20:        true,
		BlockTimestamp: ts,
		BlockNumber:    8928158,
	})

	if c.Address != "0x6b175474e89094c44da98b954eedeac495271d0f" {
		t.Fatalf("address not normalized: %s", c.Address)
	}
	if c.BlockTimestamp != "2021-10-01T12:30:00.000Z" {
		t.Fatalf("timestamp mismatch: %s", c.BlockTimestamp)
	}
	if c.ABI.Resolved() {
		t.Fatalf("abi should be unresolved")
	}
}

func TestNormalizeAddress(t *testing.T) {
	if got := NormalizeAddress("ABCDEF0123456789abcdef0123456789ABCDEF01"); got != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("unexpected address: %s", got)
	}
	if got := NormalizeAddress(""); got != "" {
		t.Fatalf("empty address should stay empty: %s", got)
	}
}
