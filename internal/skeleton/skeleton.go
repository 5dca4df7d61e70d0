// Package skeleton extracts the structural shape of JSON values.
//
// A skeleton keeps every object key, in its original order, and replaces every
// scalar or null leaf with the Unknown marker. Arrays collapse to the shape of
// their first element. Skeletons serialize back to JSON with null leaves.
package skeleton

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Kind identifies a skeleton variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Skeleton is one of Object, Array or Unknown.
type Skeleton interface {
	Kind() Kind
	json.Marshaler
}

type unknown struct{}

func (unknown) Kind() Kind                   { return KindUnknown }
func (unknown) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Unknown replaces every scalar and null leaf. It is not a JSON value itself,
// so it cannot collide with real data.
var Unknown Skeleton = unknown{}

// Field is one key of an Object.
type Field struct {
	Key   string
	Value Skeleton
}

// Object is the skeleton of a JSON object. Fields keep the source key order.
type Object struct {
	Fields []Field
}

func (Object) Kind() Kind { return KindObject }

// Get returns the skeleton stored under key.
func (o Object) Get(key string) (Skeleton, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, f.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		v := f.Value
		if v == nil {
			v = Unknown
		}
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Array is the skeleton of a JSON array. Elem is nil for an empty array.
type Array struct {
	Elem Skeleton
}

func (Array) Kind() Kind { return KindArray }

// Empty reports whether the array had no elements.
func (a Array) Empty() bool { return a.Elem == nil }

func (a Array) MarshalJSON() ([]byte, error) {
	if a.Elem == nil {
		return []byte("[]"), nil
	}
	b, err := a.Elem.MarshalJSON()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b)+2)
	out = append(out, '[')
	out = append(out, b...)
	return append(out, ']'), nil
}

// Extract returns the skeleton of v. It never fails: anything that is not an
// object or an array becomes Unknown.
//
// Key order is taken from the input when it has one (json.RawMessage and
// Skeleton values). A map[string]any carries no order, so its keys are sorted.
func Extract(v any) Skeleton {
	switch x := v.(type) {
	case nil:
		return Unknown
	case Skeleton:
		return normalize(x)
	case json.RawMessage:
		s, err := Decode(bytes.NewReader(x))
		if err != nil {
			return Unknown
		}
		return s
	case string, bool, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Unknown
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Object{Fields: make([]Field, 0, len(keys))}
		for _, k := range keys {
			obj.Fields = append(obj.Fields, Field{Key: k, Value: Extract(x[k])})
		}
		return obj
	case []any:
		if len(x) == 0 {
			return Array{}
		}
		return Array{Elem: Extract(x[0])}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Unknown
		}
		return Extract(json.RawMessage(b))
	}
}

func normalize(s Skeleton) Skeleton {
	switch x := s.(type) {
	case Object:
		obj := Object{Fields: make([]Field, 0, len(x.Fields))}
		for _, f := range x.Fields {
			obj.Fields = append(obj.Fields, Field{Key: f.Key, Value: Extract(f.Value)})
		}
		return obj
	case *Object:
		if x == nil {
			return Unknown
		}
		return normalize(*x)
	case Array:
		if x.Elem == nil {
			return Array{}
		}
		return Array{Elem: Extract(x.Elem)}
	case *Array:
		if x == nil {
			return Unknown
		}
		return normalize(*x)
	default:
		return Unknown
	}
}

// Equal reports whether a and b describe the same shape, including key order.
func Equal(a, b Skeleton) bool {
	if a == nil {
		a = Unknown
	}
	if b == nil {
		b = Unknown
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Object:
		y, ok := b.(Object)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Key != y.Fields[i].Key || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case Array:
		y, ok := b.(Array)
		if !ok {
			return false
		}
		if x.Elem == nil || y.Elem == nil {
			return x.Elem == nil && y.Elem == nil
		}
		return Equal(x.Elem, y.Elem)
	default:
		return true
	}
}

// writeString encodes s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
