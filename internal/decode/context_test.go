package decode

import (
	"encoding/json"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"abiScope/internal/model"
)

const (
	uniAddress  = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
	otherAddr   = "0x00000000000000000000000000000000000000aa"
	recipient   = "0x3333333333333333333333333333333333333333"
	uniABIJSON  = `[
  {"inputs": [{"name": "dst", "type": "address"}, {"name": "rawAmount", "type": "uint256"}], "name": "transfer", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "delegatee", "type": "address"}], "name": "delegate", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"anonymous": false, "inputs": [{"indexed": true, "name": "delegator", "type": "address"}, {"indexed": true, "name": "fromDelegate", "type": "address"}, {"indexed": true, "name": "toDelegate", "type": "address"}], "name": "DelegateChanged", "type": "event"}
]`
	otherABIJSON = `[
  {"inputs": [{"name": "amount", "type": "uint256"}], "name": "deposit", "outputs": [], "stateMutability": "payable", "type": "function"}
]`
)

func rawABI(t *testing.T, text string) model.ABI {
	t.Helper()
	var raw model.ABI
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		t.Fatalf("abi json: %v", err)
	}
	return raw
}

func parsedABI(t *testing.T, text string) *abi.ABI {
	t.Helper()
	parsed, err := ParseABI(rawABI(t, text))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	baselines, err := StandardBaselines()
	if err != nil {
		t.Fatalf("baselines: %v", err)
	}
	return NewContext(NewEngine(), baselines, nil)
}

func TestBaselineNamesWinOverContractABI(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.SetABI(uniAddress, rawABI(t, uniABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}

	input, err := parsedABI(t, uniABIJSON).Pack("transfer", common.HexToAddress(recipient), big.NewInt(1500))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if hexutil.Encode(input[:4]) != "0xa9059cbb" {
		t.Fatalf("unexpected selector %s", hexutil.Encode(input[:4]))
	}

	call, err := ctx.DecodeData(hexutil.Encode(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call == nil || call.Method != "transfer" {
		t.Fatalf("unexpected call: %+v", call)
	}
	want := map[string]interface{}{"_to": recipient, "_value": "1500"}
	if !reflect.DeepEqual(call.Params, want) {
		t.Fatalf("params mismatch: %+v", call.Params)
	}
}

func TestContractSpecificMethod(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.SetABI(uniAddress, rawABI(t, uniABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}

	input, _ := parsedABI(t, uniABIJSON).Pack("delegate", common.HexToAddress(recipient))
	call, err := ctx.DecodeData(hexutil.Encode(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call == nil || call.Method != "delegate" || call.Params["delegatee"] != recipient {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestSetABISameAddressIsNoop(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.SetABI(uniAddress, rawABI(t, uniABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}
	before := ctx.Engine().Snapshot()

	if err := ctx.SetABI(uniAddress, rawABI(t, otherABIJSON)); err != nil {
		t.Fatalf("set abi again: %v", err)
	}
	after := ctx.Engine().Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("registration table changed")
	}
	if ctx.CurrentAddress() != uniAddress {
		t.Fatalf("current address changed: %s", ctx.CurrentAddress())
	}
}

func TestSetABIEmptyIsNoop(t *testing.T) {
	ctx := newTestContext(t)
	before := ctx.Engine().Snapshot()
	if err := ctx.SetABI(otherAddr, model.ABI{}); err != nil {
		t.Fatalf("set abi: %v", err)
	}
	if err := ctx.SetABI(otherAddr, nil); err != nil {
		t.Fatalf("set abi: %v", err)
	}
	if !reflect.DeepEqual(before, ctx.Engine().Snapshot()) {
		t.Fatalf("registration table changed")
	}
	if ctx.CurrentAddress() != "" {
		t.Fatalf("nothing should be installed")
	}
}

func TestSetABIEvictsPrevious(t *testing.T) {
	ctx := newTestContext(t)
	uni := parsedABI(t, uniABIJSON)
	if err := ctx.SetABI(uniAddress, rawABI(t, uniABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}
	if err := ctx.SetABI(otherAddr, rawABI(t, otherABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}

	delegate, _ := uni.Pack("delegate", common.HexToAddress(recipient))
	call, err := ctx.DecodeData(hexutil.Encode(delegate))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call != nil {
		t.Fatalf("evicted method still decodes: %+v", call)
	}

	// transfer was shared with the evicted abi and must come back from the baseline
	transfer, _ := uni.Pack("transfer", common.HexToAddress(recipient), big.NewInt(7))
	call, err = ctx.DecodeData(hexutil.Encode(transfer))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call == nil || call.Params["_value"] != "7" {
		t.Fatalf("baseline transfer lost: %+v", call)
	}

	deposit, _ := parsedABI(t, otherABIJSON).Pack("deposit", big.NewInt(9))
	call, err = ctx.DecodeData(hexutil.Encode(deposit))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call == nil || call.Method != "deposit" || call.Params["amount"] != "9" {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestSetABIParseFailureKeepsCurrent(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.SetABI(uniAddress, rawABI(t, uniABIJSON)); err != nil {
		t.Fatalf("set abi: %v", err)
	}
	before := ctx.Engine().Snapshot()

	bad := model.ABI{json.RawMessage(`{"type":"function","name":"broken","inputs":[{"name":"x","type":"notatype"}]}`)}
	if err := ctx.SetABI(otherAddr, bad); err == nil {
		t.Fatalf("expected parse error")
	}
	if ctx.CurrentAddress() != uniAddress {
		t.Fatalf("current address changed: %s", ctx.CurrentAddress())
	}
	if !reflect.DeepEqual(before, ctx.Engine().Snapshot()) {
		t.Fatalf("registration table changed")
	}
}

func TestDecodeDataNoMatch(t *testing.T) {
	ctx := newTestContext(t)
	call, err := ctx.DecodeData("0xdeadbeef00000000")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call != nil {
		t.Fatalf("expected no match, got %+v", call)
	}
	if call, err := ctx.DecodeData("0x"); err != nil || call != nil {
		t.Fatalf("empty input should not decode: %+v %v", call, err)
	}
	if _, err := ctx.DecodeData("0xzz"); err == nil {
		t.Fatalf("invalid hex should fail")
	}
}

func topicFromAddress(address string) string {
	return common.BytesToHash(common.HexToAddress(address).Bytes()).Hex()
}

func TestDecodeERC20AndERC721Transfer(t *testing.T) {
	ctx := newTestContext(t)
	baselines, _ := StandardBaselines()
	erc20 := baselines[0].ABI
	erc721 := baselines[1].ABI
	from := "0x2222222222222222222222222222222222222222"

	data, err := erc20.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(1000000))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	event, err := ctx.DecodeEvent(model.RawLog{
		Address: "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48",
		Data:    hexutil.Encode(data),
		Topics:  []string{erc20.Events["Transfer"].ID.Hex(), topicFromAddress(from), topicFromAddress(recipient)},
	})
	if err != nil {
		t.Fatalf("decode erc20: %v", err)
	}
	want := map[string]interface{}{"from": from, "to": recipient, "value": "1000000"}
	if event == nil || event.Name != "Transfer" || !reflect.DeepEqual(event.Params, want) {
		t.Fatalf("unexpected erc20 event: %+v", event)
	}
	if event.Address != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Fatalf("address not normalized: %s", event.Address)
	}

	tokenID := common.BigToHash(big.NewInt(42)).Hex()
	event, err = ctx.DecodeEvent(model.RawLog{
		Address: "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
		Data:    "0x",
		Topics:  []string{erc721.Events["Transfer"].ID.Hex(), topicFromAddress(from), topicFromAddress(recipient), tokenID},
	})
	if err != nil {
		t.Fatalf("decode erc721: %v", err)
	}
	want = map[string]interface{}{"_from": from, "_to": recipient, "_tokenId": "42"}
	if event == nil || !reflect.DeepEqual(event.Params, want) {
		t.Fatalf("unexpected erc721 event: %+v", event)
	}
}

func TestDecodeEventNoMatch(t *testing.T) {
	ctx := newTestContext(t)
	event, err := ctx.DecodeEvent(model.RawLog{
		Address: otherAddr,
		Topics:  []string{common.HexToHash("0x01").Hex()},
	})
	if err != nil || event != nil {
		t.Fatalf("expected no match: %+v %v", event, err)
	}
	event, err = ctx.DecodeEvent(model.RawLog{Address: otherAddr})
	if err != nil || event != nil {
		t.Fatalf("log without topics should not decode: %+v %v", event, err)
	}
}
