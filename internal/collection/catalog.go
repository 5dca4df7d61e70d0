package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/afero"
)

// UncategorizedName labels endpoints that sit at the collection root.
const UncategorizedName = "Other"

// Catalog is an immutable, sorted list of endpoints. Callers share it by
// pointer and must not modify the returned slices. A nil *Catalog is empty.
type Catalog struct {
	endpoints []Endpoint
	builtAt   time.Time
}

// NewCatalog copies and sorts endpoints into a catalog.
func NewCatalog(endpoints []Endpoint) *Catalog {
	eps := append([]Endpoint(nil), endpoints...)
	SortEndpoints(eps)
	return &Catalog{endpoints: eps, builtAt: time.Now()}
}

// BuildCatalog loads a collection into a catalog. A collection that cannot be
// loaded yields an empty catalog.
func BuildCatalog(ctx context.Context, fsys afero.Fs, input string, opts ...Option) *Catalog {
	return NewCatalog(LoadEndpoints(ctx, fsys, input, opts...))
}

// Endpoints returns all endpoints in catalog order.
func (c *Catalog) Endpoints() []Endpoint {
	if c == nil {
		return []Endpoint{}
	}
	return append([]Endpoint{}, c.endpoints...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.endpoints)
}

// BuiltAt is when the catalog was constructed.
func (c *Catalog) BuiltAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.builtAt
}

// Find returns the endpoint with the given method and raw path.
func (c *Catalog) Find(method, rawPath string) (Endpoint, bool) {
	if c == nil {
		return Endpoint{}, false
	}
	for _, ep := range c.endpoints {
		if strings.EqualFold(ep.Method, method) && ep.RawPath == rawPath {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// CategoryGroup is the set of endpoints sharing one breadcrumb.
type CategoryGroup struct {
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Categories groups endpoints by category in catalog order. Root-level
// endpoints are grouped under UncategorizedName.
func (c *Catalog) Categories() []CategoryGroup {
	var groups []CategoryGroup
	index := map[string]int{}
	for _, ep := range c.Endpoints() {
		name := ep.Category
		if name == "" {
			name = UncategorizedName
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, CategoryGroup{Name: name})
		}
		groups[i].Endpoints = append(groups[i].Endpoints, ep)
	}
	return groups
}

// FilterOptions narrows a catalog listing. Zero values match everything.
type FilterOptions struct {
	// Methods keeps endpoints using one of these HTTP methods (case-insensitive).
	Methods []string
	// Category keeps endpoints in this category or any category below it.
	Category string
	// PathGlob matches raw or display paths; "*" stays within a segment and
	// "**" spans segments.
	PathGlob string
}

// Filter returns the endpoints matching opts, in catalog order.
func (c *Catalog) Filter(opts FilterOptions) ([]Endpoint, error) {
	var pathGlob glob.Glob
	if p := strings.Trim(strings.TrimSpace(opts.PathGlob), "/"); p != "" {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", opts.PathGlob, err)
		}
		pathGlob = g
	}
	methods := map[string]struct{}{}
	for _, m := range opts.Methods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			methods[m] = struct{}{}
		}
	}
	category := strings.TrimSpace(opts.Category)

	out := []Endpoint{}
	for _, ep := range c.Endpoints() {
		if len(methods) > 0 {
			if _, ok := methods[strings.ToUpper(ep.Method)]; !ok {
				continue
			}
		}
		if category != "" && ep.Category != category && !strings.HasPrefix(ep.Category, category+CategorySeparator) {
			continue
		}
		if pathGlob != nil && !pathGlob.Match(strings.Trim(ep.RawPath, "/")) && !pathGlob.Match(strings.Trim(ep.DisplayPath, "/")) {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}

// Search returns endpoints whose name, path or category fuzzily contains
// query, in catalog order. An empty query matches everything.
func (c *Catalog) Search(query string) []Endpoint {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Endpoints()
	}
	out := []Endpoint{}
	for _, ep := range c.Endpoints() {
		if fuzzy.MatchFold(query, ep.Name) || fuzzy.MatchFold(query, ep.RawPath) || fuzzy.MatchFold(query, ep.Category) {
			out = append(out, ep)
		}
	}
	return out
}
