package skeleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errTrailingData = errors.New("skeleton: unexpected data after top-level value")

// Decode reads one JSON value from r and returns its skeleton. Object keys keep
// their document order. Array elements after the first are read and discarded.
// A repeated key keeps its first position and takes the last value.
func Decode(r io.Reader) (Skeleton, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	s, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return s, nil
}

func decodeValue(dec *json.Decoder) (Skeleton, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return Unknown, nil
	}
	switch delim {
	case '{':
		return decodeObject(dec)
	case '[':
		return decodeArray(dec)
	default:
		return nil, fmt.Errorf("skeleton: unexpected delimiter %q", delim)
	}
}

func decodeObject(dec *json.Decoder) (Skeleton, error) {
	obj := Object{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("skeleton: object key is %T, not a string", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			obj.Fields[i].Value = val
			continue
		}
		index[key] = len(obj.Fields)
		obj.Fields = append(obj.Fields, Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Skeleton, error) {
	arr := Array{}
	for dec.More() {
		if arr.Elem == nil {
			elem, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr.Elem = elem
			continue
		}
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}
