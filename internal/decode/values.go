package decode

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatValue renders a decoded ABI value as a plain JSON value: integers as
// decimal strings, addresses as lowercase hex, bytes as 0x hex, tuples as objects
// and arrays as lists.
func FormatValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case common.Address:
		return strings.ToLower(x.Hex())
	case common.Hash:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case string, bool:
		return x
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(x).Int(), 10)
	case uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(x).Uint(), 10)
	}
	return formatReflect(reflect.ValueOf(v))
}

func formatReflect(rv reflect.Value) interface{} {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return FormatValue(rv.Elem().Interface())
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		return formatList(rv)
	case reflect.Slice:
		return formatList(rv)
	case reflect.Struct:
		out := make(map[string]interface{}, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			name := field.Name
			if tag := strings.Split(field.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
				name = tag
			}
			out[name] = FormatValue(rv.Field(i).Interface())
		}
		return out
	}
	return fmt.Sprint(rv.Interface())
}

func formatList(rv reflect.Value) []interface{} {
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = FormatValue(rv.Index(i).Interface())
	}
	return out
}
