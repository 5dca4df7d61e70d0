package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/apishape/internal/skeleton"
)

// Document maps invoked endpoint paths to their most recent skeleton. Paths
// keep the order in which they were first recorded.
type Document struct {
	paths   []string
	entries map[string]skeleton.Skeleton
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{entries: map[string]skeleton.Skeleton{}}
}

// Set inserts or overwrites the skeleton for path. An overwritten path keeps
// its position.
func (d *Document) Set(path string, s skeleton.Skeleton) {
	if d.entries == nil {
		d.entries = map[string]skeleton.Skeleton{}
	}
	if s == nil {
		s = skeleton.Unknown
	}
	if _, ok := d.entries[path]; !ok {
		d.paths = append(d.paths, path)
	}
	d.entries[path] = s
}

// Get returns the skeleton recorded for path.
func (d *Document) Get(path string) (skeleton.Skeleton, bool) {
	s, ok := d.entries[path]
	return s, ok
}

// Paths returns the recorded paths in document order.
func (d *Document) Paths() []string {
	return append([]string(nil), d.paths...)
}

// Len returns the number of recorded paths.
func (d *Document) Len() int { return len(d.paths) }

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d.paths {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, p); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		val, err := d.entries[p].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", p, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("docstore: document must be a JSON object")
	}
	doc := NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("docstore: unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("docstore: entry %q: %w", path, err)
		}
		doc.Set(path, skeleton.Extract(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = *doc
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
