// Package openapiemitter renders the endpoint catalog, enriched with the
// recorded response documentation, as an OpenAPI 3 document.
package openapiemitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/docstore"
	"github.com/mark3labs/apishape/internal/skeleton"
)

// Format is the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Info fills the document's info and servers sections.
type Info struct {
	Title       string
	Version     string
	Description string
	ServerURL   string
}

// Options controls how the export is written.
type Options struct {
	OutFile string // required unless DryRun
	Format  Format // defaults from OutFile's extension, then JSON
	Info    Info
	Force   bool // overwrite an existing file
	DryRun  bool // don't write, only plan
}

// PlannedFile describes the file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Skipped is an endpoint left out of the document.
type Skipped struct {
	Endpoint collection.Endpoint
	Reason   string
}

// Result holds the built document and what was (or would be) written.
type Result struct {
	Doc     *openapi3.T
	Format  Format
	Content []byte
	Planned PlannedFile
	Skipped []Skipped
	// Documented counts operations whose 200 response has a recorded schema.
	Documented int
}

// Emit builds, validates and renders the document, then writes it
// atomically unless DryRun is set.
func Emit(ctx context.Context, fsys afero.Fs, endpoints []collection.Endpoint, doc *docstore.Document, opts Options) (*Result, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(opts.OutFile) == "" && !opts.DryRun {
		return nil, fmt.Errorf("openapiemitter: OutFile is required")
	}
	format := resolveFormat(opts.Format, opts.OutFile)

	res := Build(endpoints, doc, opts.Info)
	if err := res.Doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapiemitter: generated document is invalid: %w", err)
	}
	content, err := Render(res.Doc, format)
	if err != nil {
		return nil, err
	}
	res.Format = format
	res.Content = content
	res.Planned = PlannedFile{RelPath: filepath.ToSlash(opts.OutFile), Size: len(content), Mode: 0o644}

	if !opts.DryRun {
		if err := writeFile(fsys, opts.OutFile, content, opts.Force); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func resolveFormat(f Format, outFile string) Format {
	switch Format(strings.ToLower(string(f))) {
	case FormatJSON:
		return FormatJSON
	case FormatYAML, "yml":
		return FormatYAML
	}
	switch strings.ToLower(filepath.Ext(outFile)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Build maps endpoints to OpenAPI operations. Each endpoint's 200 response
// schema comes from the first documentation entry, in document order, whose
// invoked path is an instance of the endpoint's raw path.
func Build(endpoints []collection.Endpoint, doc *docstore.Document, info Info) *Result {
	if doc == nil {
		doc = docstore.NewDocument()
	}
	if info.Title == "" {
		info.Title = "API"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	t := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.Paths{},
	}
	if info.ServerURL != "" {
		t.Servers = openapi3.Servers{{URL: info.ServerURL}}
	}

	res := &Result{Doc: t}
	normalized := map[string]string{}
	opIDs := map[string]int{}
	tags := map[string]struct{}{}

	for _, ep := range endpoints {
		if _, ok := operationMethods[ep.Method]; !ok {
			res.Skipped = append(res.Skipped, Skipped{Endpoint: ep, Reason: fmt.Sprintf("method %s has no OpenAPI operation", ep.Method)})
			continue
		}
		key := "/" + strings.Trim(ep.DisplayPath, "/")
		norm := templateMarker.ReplaceAllString(key, "{}")
		if existing, ok := normalized[norm]; ok && existing != key {
			res.Skipped = append(res.Skipped, Skipped{Endpoint: ep, Reason: fmt.Sprintf("path conflicts with %s", existing)})
			continue
		}
		item := t.Paths[key]
		if item == nil {
			item = &openapi3.PathItem{}
			t.Paths[key] = item
			normalized[norm] = key
		}
		if item.GetOperation(ep.Method) != nil {
			res.Skipped = append(res.Skipped, Skipped{Endpoint: ep, Reason: "duplicate method and path"})
			continue
		}

		op, documented := buildOperation(ep, key, doc)
		op.OperationID = uniqueOperationID(opIDs, ep.Method, key)
		if documented {
			res.Documented++
		}
		if ep.Category != "" {
			op.Tags = []string{ep.Category}
			tags[ep.Category] = struct{}{}
		}
		item.SetOperation(ep.Method, op)
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.Tags = append(t.Tags, &openapi3.Tag{Name: name})
	}
	return res
}

var operationMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodPost: {}, http.MethodPut: {}, http.MethodDelete: {},
	http.MethodPatch: {}, http.MethodHead: {}, http.MethodOptions: {}, http.MethodTrace: {},
}

var (
	templateMarker = regexp.MustCompile(`\{[^}/]+\}`)
	nonIdent       = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

func buildOperation(ep collection.Endpoint, key string, doc *docstore.Document) (*openapi3.Operation, bool) {
	op := &openapi3.Operation{
		Summary:     ep.Name,
		Description: ep.Description,
	}

	seen := map[string]struct{}{}
	for _, m := range templateMarker.FindAllString(key, -1) {
		name := strings.Trim(m, "{}")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		p := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}
	seen = map[string]struct{}{}
	for _, q := range ep.QueryParams {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		p := openapi3.NewQueryParameter(q).WithSchema(openapi3.NewStringSchema())
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}

	if ep.Body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{Value: requestBody(*ep.Body)}
	}

	resp := openapi3.NewResponse().WithDescription("Response structure not recorded yet")
	documented := false
	if sk, ok := lookup(doc, ep.RawPath); ok {
		resp = openapi3.NewResponse().WithDescription("OK").WithJSONSchema(SchemaFromSkeleton(sk))
		documented = true
	}
	op.Responses = openapi3.Responses{"200": &openapi3.ResponseRef{Value: resp}}
	return op, documented
}

func lookup(doc *docstore.Document, rawPath string) (skeleton.Skeleton, bool) {
	for _, p := range doc.Paths() {
		if collection.MatchPath(rawPath, p) {
			return doc.Get(p)
		}
	}
	return nil, false
}

func requestBody(b collection.Body) *openapi3.RequestBody {
	if !b.IsJSON() {
		return openapi3.NewRequestBody().WithContent(openapi3.Content{
			"text/plain": &openapi3.MediaType{Schema: openapi3.NewStringSchema().NewRef(), Example: b.Raw},
		})
	}
	example := b.Value()
	return openapi3.NewRequestBody().WithContent(openapi3.Content{
		"application/json": &openapi3.MediaType{Schema: schemaFromValue(example).NewRef(), Example: example},
	})
}

func uniqueOperationID(used map[string]int, method, key string) string {
	base := strings.ToLower(method) + "_" + strings.Trim(nonIdent.ReplaceAllString(key, "_"), "_")
	base = strings.TrimSuffix(base, "_")
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

// SchemaFromSkeleton maps an object skeleton to an object schema with the
// same properties, an array to an array schema and Unknown to an empty
// schema that accepts any value.
func SchemaFromSkeleton(s skeleton.Skeleton) *openapi3.Schema {
	switch v := s.(type) {
	case skeleton.Object:
		schema := openapi3.NewObjectSchema()
		for _, f := range v.Fields {
			schema.WithProperty(f.Key, SchemaFromSkeleton(f.Value))
		}
		return schema
	case skeleton.Array:
		if v.Empty() {
			return openapi3.NewArraySchema().WithItems(&openapi3.Schema{})
		}
		return openapi3.NewArraySchema().WithItems(SchemaFromSkeleton(v.Elem))
	default:
		return &openapi3.Schema{Nullable: true}
	}
}

// schemaFromValue infers a schema from an example body, which unlike a
// skeleton still carries its leaf values.
func schemaFromValue(v any) *openapi3.Schema {
	switch t := v.(type) {
	case map[string]any:
		schema := openapi3.NewObjectSchema()
		for k, val := range t {
			schema.WithProperty(k, schemaFromValue(val))
		}
		return schema
	case []any:
		if len(t) == 0 {
			return openapi3.NewArraySchema().WithItems(&openapi3.Schema{})
		}
		return openapi3.NewArraySchema().WithItems(schemaFromValue(t[0]))
	case string:
		return openapi3.NewStringSchema()
	case bool:
		return openapi3.NewBoolSchema()
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return openapi3.NewIntegerSchema()
		}
		return openapi3.NewFloat64Schema()
	default:
		return &openapi3.Schema{Nullable: true}
	}
}

// Render encodes the document. YAML keeps the key order of the JSON form.
func Render(t *openapi3.T, format Format) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	if format != FormatYAML {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// blockStyle turns the flow style inherited from JSON into block style and
// lets the encoder pick quoting for strings.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style &^= yaml.FlowStyle
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeFile(fsys afero.Fs, path string, content []byte, force bool) error {
	if exists, err := afero.Exists(fsys, path); err == nil && exists && !force {
		return fmt.Errorf("openapiemitter: %s already exists (use --force to overwrite)", path)
	}
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// atomic write via temp file + rename
	tmp, err := afero.TempFile(fsys, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("write temp %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("close temp %s: %w", path, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
