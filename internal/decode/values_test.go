package decode

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestFormatValue(t *testing.T) {
	type tuple struct {
		Owner  common.Address `json:"owner"`
		Amount *big.Int       `json:"amount"`
	}

	cases := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"big int", big.NewInt(-12), "-12"},
		{"uint8", uint8(18), "18"},
		{"int24", int32(-887272), "-887272"},
		{"address", common.HexToAddress("0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"), "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		{"bytes", []byte{0xde, 0xad}, "0xdead"},
		{"bytes4", [4]byte{0xa9, 0x05, 0x9c, 0xbb}, "0xa9059cbb"},
		{"bool", true, true},
		{"string", "UNI", "UNI"},
		{"array", []*big.Int{big.NewInt(1), big.NewInt(2)}, []interface{}{"1", "2"}},
		{"tuple", tuple{Owner: common.HexToAddress("0x01"), Amount: big.NewInt(5)}, map[string]interface{}{
			"owner":  "0x0000000000000000000000000000000000000001",
			"amount": "5",
		}},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v want %#v", tc.name, got, tc.want)
		}
	}
}
