package collection

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Endpoint is one callable operation discovered in a collection.
type Endpoint struct {
	Name        string   `json:"name"`
	Method      string   `json:"method"`
	RawPath     string   `json:"path"`
	DisplayPath string   `json:"display_path"`
	Category    string   `json:"category"`
	QueryParams []string `json:"query_params"`
	Body        *Body    `json:"body"`
	PathVars    []string `json:"path_vars"`
	Description string   `json:"description"`
}

// Key identifies the endpoint as "METHOD path".
func (e Endpoint) Key() string { return e.Method + " " + e.RawPath }

func (e Endpoint) MarshalJSON() ([]byte, error) {
	type plain Endpoint
	p := plain(e)
	if p.QueryParams == nil {
		p.QueryParams = []string{}
	}
	if p.PathVars == nil {
		p.PathVars = []string{}
	}
	return json.Marshal(p)
}

// Body is an example request body: structured JSON when the raw text parsed,
// the raw text otherwise.
type Body struct {
	JSON json.RawMessage
	Raw  string
}

// ParseBody returns the body for raw request text, or nil for empty text.
func ParseBody(raw string) *Body {
	if raw == "" {
		return nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		if trimmed == "null" {
			return nil
		}
		return &Body{JSON: json.RawMessage(trimmed)}
	}
	return &Body{Raw: raw}
}

// IsJSON reports whether the body holds structured JSON.
func (b Body) IsJSON() bool { return b.JSON != nil }

// Value returns the decoded JSON value, or the raw text.
func (b Body) Value() any {
	if b.JSON == nil {
		return b.Raw
	}
	var v any
	if err := json.Unmarshal(b.JSON, &v); err != nil {
		return string(b.JSON)
	}
	return v
}

// Text is the body as it would be sent: the JSON text or the raw text.
func (b Body) Text() string {
	if b.JSON != nil {
		return string(b.JSON)
	}
	return b.Raw
}

func (b Body) MarshalJSON() ([]byte, error) {
	if b.JSON != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, b.JSON); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.Marshal(b.Raw)
}

// UnmarshalJSON reads a body back. A JSON string is taken as raw text.
func (b *Body) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		b.JSON = nil
		return json.Unmarshal(trimmed, &b.Raw)
	}
	b.Raw = ""
	b.JSON = append(json.RawMessage(nil), trimmed...)
	return nil
}
