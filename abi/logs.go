package abi

import (
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/simular-fi/simular/store"
)

// LogMatch is one (event name, decoded fields) pair spec §4.6's
// extract_logs produces.
type LogMatch struct {
	EventName string
	Value     Value
}

// ExtractLogs implements spec §4.6's log extraction: for each emitted
// Log, every registered event whose topic0 (or, for an anonymous
// event, whose shape alone) and topic count match is decoded and
// emitted. A single log may match more than one registered event
// sharing a signature; all matches are emitted, in registration order.
func (r *Registry) ExtractLogs(logs []store.Log) []LogMatch {
	var out []LogMatch
	for _, lg := range logs {
		for _, ev := range r.events {
			v, ok := matchEvent(ev, lg)
			if !ok {
				continue
			}
			out = append(out, LogMatch{EventName: ev.Name, Value: v})
		}
	}
	return out
}

func matchEvent(ev gethabi.Event, lg store.Log) (Value, bool) {
	var indexed gethabi.Arguments
	var nonIndexed gethabi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}

	expectedTopics := len(indexed)
	if !ev.Anonymous {
		expectedTopics++
	}
	if len(lg.Topics) != expectedTopics {
		return Value{}, false
	}
	if !ev.Anonymous {
		if lg.Topics[0] != ev.ID {
			return Value{}, false
		}
	}

	topicOffset := 0
	if !ev.Anonymous {
		topicOffset = 1
	}

	names := make([]string, 0, len(ev.Inputs))
	values := make([]Value, 0, len(ev.Inputs))

	indexedValues := make([]Value, len(indexed))
	for i, arg := range indexed {
		v, err := decodeTopic(arg.Type, lg.Topics[topicOffset+i])
		if err != nil {
			return Value{}, false
		}
		indexedValues[i] = v
	}

	var nonIndexedValue *Value
	if len(nonIndexed) > 0 {
		v, err := DecodeOutput(nonIndexed, lg.Data)
		if err != nil {
			return Value{}, false
		}
		nonIndexedValue = v
	}

	// Reassemble in the event's declared field order.
	ii, ni := 0, 0
	for _, arg := range ev.Inputs {
		names = append(names, arg.Name)
		if arg.Indexed {
			values = append(values, indexedValues[ii])
			ii++
			continue
		}
		if nonIndexedValue != nil && len(nonIndexed) == 1 {
			values = append(values, *nonIndexedValue)
		} else if nonIndexedValue != nil {
			values = append(values, nonIndexedValue.Elems[ni])
		}
		ni++
	}

	return Value{Kind: KindTuple, Names: names, Elems: values}, true
}

// decodeTopic decodes one indexed field from its 32-byte topic word.
// Static types (address, bool, uint/int, fixed bytes) are encoded
// directly in the topic and decode cleanly; dynamic types (string,
// bytes, dynamic arrays, tuples containing one) are keccak256-hashed
// into the topic by the interpreter and cannot be recovered — those
// decode to the raw hash as FixedBytes, matching what every ABI
// consumer that doesn't index on the pre-image does.
func decodeTopic(t gethabi.Type, topic common.Hash) (Value, error) {
	args := gethabi.Arguments{{Type: t}}
	raw, err := args.Unpack(topic.Bytes())
	if err != nil || len(raw) != 1 {
		return Value{Kind: KindFixedBytes, Bytes: append([]byte(nil), topic.Bytes()...)}, nil
	}
	return fromReflect(t, raw[0])
}
