package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

type fakeCaller struct {
	responses map[string][]byte
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if resp, ok := f.responses[string(msg.Data[:4])]; ok {
		return resp, nil
	}
	return nil, errors.New("execution reverted")
}

func packOutput(t *testing.T, parsed abi.ABI, method string, value interface{}) (string, []byte) {
	t.Helper()
	m := parsed.Methods[method]
	out, err := m.Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return string(m.ID), out
}

func TestFetchTokenStringMetadata(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	for method, value := range map[string]interface{}{"decimals": uint8(18), "symbol": "DAI", "name": "Dai Stablecoin"} {
		id, out := packOutput(t, metadataABI, method, value)
		caller.responses[id] = out
	}

	token, err := NewTokenReader(caller, nil).FetchToken(context.Background(), "0x6B175474E89094C44Da98b954EedeAC495271d0F")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if token == nil {
		t.Fatalf("expected token")
	}
	if token.Address != "0x6b175474e89094c44da98b954eedeac495271d0f" || token.Symbol != "DAI" || token.Name != "Dai Stablecoin" || token.Decimals != 18 {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestFetchTokenBytes32Fallback(t *testing.T) {
	var symbol [32]byte
	copy(symbol[:], "MKR")
	caller := &fakeCaller{responses: map[string][]byte{}}
	id, out := packOutput(t, metadataABI, "decimals", uint8(18))
	caller.responses[id] = out
	// the bytes32 and string variants share a selector, so the string decode fails first
	id, out = packOutput(t, legacyMetadataABI, "symbol", symbol)
	caller.responses[id] = out

	token, err := NewTokenReader(caller, nil).FetchToken(context.Background(), "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if token.Symbol != "MKR" {
		t.Fatalf("expected MKR, got %q", token.Symbol)
	}
	if token.Name != "" {
		t.Fatalf("expected empty name, got %q", token.Name)
	}
	if !bytes.Equal(legacyMetadataABI.Methods["symbol"].ID, metadataABI.Methods["symbol"].ID) {
		t.Fatalf("selectors should match")
	}
}

func TestMetadataSelectors(t *testing.T) {
	want := map[string]string{"decimals": "313ce567", "symbol": "95d89b41", "name": "06fdde03"}
	for method, selector := range want {
		if got := hex.EncodeToString(metadataABI.Methods[method].ID); got != selector {
			t.Fatalf("%s selector = %s, want %s", method, got, selector)
		}
	}
}

func TestFetchTokenNotAToken(t *testing.T) {
	token, err := NewTokenReader(&fakeCaller{}, nil).FetchToken(context.Background(), "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if token != nil {
		t.Fatalf("expected nil token, got %+v", token)
	}
}
