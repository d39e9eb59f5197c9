package decode

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"abiScope/internal/model"
)

type methodEntry struct {
	tag    string
	method abi.Method
}

type eventKey struct {
	id      common.Hash
	indexed int
}

type eventEntry struct {
	tag   string
	event abi.Event
}

// Engine is a registration table of ABI methods and events. A selector or event
// key belongs to the first ABI that registers it.
type Engine struct {
	mu      sync.RWMutex
	methods map[[4]byte]methodEntry
	events  map[eventKey]eventEntry
}

func NewEngine() *Engine {
	return &Engine{
		methods: make(map[[4]byte]methodEntry),
		events:  make(map[eventKey]eventEntry),
	}
}

// Register adds every method and non-anonymous event of parsed whose key is free.
func (e *Engine) Register(tag string, parsed *abi.ABI) {
	if parsed == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, method := range parsed.Methods {
		var selector [4]byte
		copy(selector[:], method.ID)
		if _, taken := e.methods[selector]; !taken {
			e.methods[selector] = methodEntry{tag: tag, method: method}
		}
	}
	for _, event := range parsed.Events {
		if event.Anonymous {
			continue
		}
		key := keyOf(event)
		if _, taken := e.events[key]; !taken {
			e.events[key] = eventEntry{tag: tag, event: event}
		}
	}
}

// Unregister removes every key parsed defines, whichever ABI registered it.
func (e *Engine) Unregister(parsed *abi.ABI) {
	if parsed == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, method := range parsed.Methods {
		var selector [4]byte
		copy(selector[:], method.ID)
		delete(e.methods, selector)
	}
	for _, event := range parsed.Events {
		delete(e.events, keyOf(event))
	}
}

// DecodeMethod decodes call input. It returns nil when no registered method
// matches the selector.
func (e *Engine) DecodeMethod(input []byte) (*model.Call, error) {
	if len(input) < 4 {
		return nil, nil
	}
	var selector [4]byte
	copy(selector[:], input[:4])

	e.mu.RLock()
	entry, ok := e.methods[selector]
	e.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	values, err := entry.method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", entry.method.RawName, err)
	}
	return &model.Call{
		Method: entry.method.RawName,
		Params: namedValues(entry.method.Inputs, values),
	}, nil
}

// DecodeLog decodes an event log. It returns nil when no registered event matches
// topic0 and the number of indexed topics.
func (e *Engine) DecodeLog(log model.RawLog) (*model.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}
	topics := make([]common.Hash, len(log.Topics))
	for i, topic := range log.Topics {
		raw, err := hexutil.Decode(topic)
		if err != nil || len(raw) != common.HashLength {
			return nil, fmt.Errorf("invalid topic %q", topic)
		}
		topics[i] = common.BytesToHash(raw)
	}

	e.mu.RLock()
	entry, ok := e.events[eventKey{id: topics[0], indexed: len(topics) - 1}]
	e.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	params := make(map[string]interface{}, len(entry.event.Inputs))

	var indexed abi.Arguments
	for _, arg := range entry.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	for i, arg := range indexed {
		value, err := topicValue(arg, topics[i+1])
		if err != nil {
			return nil, fmt.Errorf("topic %s.%s: %w", entry.event.RawName, arg.Name, err)
		}
		params[argName(arg, i)] = FormatValue(value)
	}

	nonIndexed := entry.event.Inputs.NonIndexed()
	if len(nonIndexed) > 0 {
		data, err := hexutil.Decode(emptyHex(log.Data))
		if err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
		values, err := nonIndexed.Unpack(data)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", entry.event.RawName, err)
		}
		for name, value := range namedValues(nonIndexed, values) {
			params[name] = value
		}
	}

	return &model.DecodedEvent{
		Name:    entry.event.RawName,
		Address: model.NormalizeAddress(log.Address),
		Params:  params,
	}, nil
}

// Snapshot lists the registered keys with their owners, sorted.
func (e *Engine) Snapshot() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.methods)+len(e.events))
	for selector, entry := range e.methods {
		keys = append(keys, fmt.Sprintf("method %s %s %s", hexutil.Encode(selector[:]), entry.method.RawName, entry.tag))
	}
	for key, entry := range e.events {
		keys = append(keys, fmt.Sprintf("event %s/%d %s %s", key.id.Hex(), key.indexed, entry.event.RawName, entry.tag))
	}
	sort.Strings(keys)
	return keys
}

func keyOf(event abi.Event) eventKey {
	indexed := 0
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed++
		}
	}
	return eventKey{id: event.ID, indexed: indexed}
}

func topicValue(arg abi.Argument, topic common.Hash) (interface{}, error) {
	switch arg.Type.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		// dynamic values are indexed by their hash
		return topic, nil
	}
	out := make(map[string]interface{}, 1)
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{arg}, []common.Hash{topic}); err != nil {
		return nil, err
	}
	return out[arg.Name], nil
}

func namedValues(args abi.Arguments, values []interface{}) map[string]interface{} {
	params := make(map[string]interface{}, len(values))
	for i, value := range values {
		if i >= len(args) {
			break
		}
		params[argName(args[i], i)] = FormatValue(value)
	}
	return params
}

func argName(arg abi.Argument, i int) string {
	if arg.Name != "" {
		return arg.Name
	}
	return fmt.Sprintf("arg%d", i)
}

func emptyHex(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}
