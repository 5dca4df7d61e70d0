package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decode parses collection JSON into the internal model. Only a document that
// is not JSON, or whose root is not an object, is an error. Every other
// irregularity degrades to an empty value for that field.
func Decode(data []byte) (*Collection, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse collection: root is %s, expected an object", jsonType(root))
	}
	c := &Collection{Items: decodeItems(obj["item"])}
	if info, ok := obj["info"].(map[string]any); ok {
		c.Name = asString(info["name"])
	}
	return c, nil
}

func decodeItems(v any) []Node {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	nodes := make([]Node, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if n := decodeNode(m); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// decodeNode decides the node variant once: an "item" field makes a group,
// otherwise a "request" field makes a request. Anything else is dropped.
func decodeNode(m map[string]any) Node {
	name := asString(m["name"])
	if children, ok := m["item"]; ok {
		return &Group{Name: name, Children: decodeItems(children)}
	}
	req, ok := m["request"]
	if !ok {
		return nil
	}
	r := &Request{Name: name, Description: asDescription(m["description"]), Method: "GET"}
	switch v := req.(type) {
	case string:
		// Postman v2.0 allows the request to be just its url.
		r.URL = parseURLString(v)
	case map[string]any:
		if method := strings.ToUpper(strings.TrimSpace(asString(v["method"]))); method != "" {
			r.Method = method
		}
		r.URL = decodeURL(v["url"])
		r.Body = decodeBody(v["body"])
		if r.Description == "" {
			r.Description = asDescription(v["description"])
		}
	}
	return r
}

func decodeURL(v any) URL {
	switch u := v.(type) {
	case string:
		return parseURLString(u)
	case map[string]any:
		out := URL{
			Query:     decodeKeyValues(u["query"]),
			Variables: decodeKeyValues(u["variable"]),
		}
		switch p := u["path"].(type) {
		case []any:
			out.Segments = make([]string, 0, len(p))
			for _, seg := range p {
				switch s := seg.(type) {
				case string:
					out.Segments = append(out.Segments, s)
				case map[string]any:
					out.Segments = append(out.Segments, asString(s["value"]))
				}
			}
		case string:
			out.PathText = p
		}
		return out
	default:
		return URL{}
	}
}

func decodeKeyValues(v any) []KeyValue {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]KeyValue, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, KeyValue{
			Key:      asString(m["key"]),
			Value:    asString(m["value"]),
			Disabled: m["disabled"] == true,
		})
	}
	return out
}

func decodeBody(v any) *RequestBody {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &RequestBody{Mode: asString(m["mode"]), Raw: asString(m["raw"])}
}

// asDescription accepts a plain string or a Postman description object.
func asDescription(v any) string {
	if m, ok := v.(map[string]any); ok {
		return asString(m["content"])
	}
	return asString(v)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
