package collection

import "sort"

// CategorySeparator joins ancestor group names into a breadcrumb.
const CategorySeparator = " > "

// Parse flattens the collection into endpoints, depth-first in document order,
// then sorts them by (category, method, raw path). It never fails.
func Parse(c *Collection) []Endpoint {
	endpoints := []Endpoint{}
	if c == nil {
		return endpoints
	}
	flatten(c.Items, "", &endpoints)
	SortEndpoints(endpoints)
	return endpoints
}

func flatten(nodes []Node, category string, out *[]Endpoint) {
	for _, n := range nodes {
		switch node := n.(type) {
		case *Group:
			next := node.Name
			if category != "" {
				next = category + CategorySeparator + node.Name
			}
			flatten(node.Children, next, out)
		case *Request:
			*out = append(*out, newEndpoint(node, category))
		}
	}
}

func newEndpoint(r *Request, category string) Endpoint {
	raw := r.URL.RawPath()
	method := r.Method
	if method == "" {
		method = "GET"
	}
	ep := Endpoint{
		Name:        r.Name,
		Method:      method,
		RawPath:     raw,
		DisplayPath: DisplayPath(raw),
		Category:    category,
		QueryParams: queryKeys(r.URL.Query),
		PathVars:    declaredVars(r.URL.Variables),
		Description: r.Description,
	}
	if len(ep.PathVars) == 0 {
		ep.PathVars = ScanPathVars(raw)
	}
	if r.Body != nil && r.Body.Mode == "raw" && r.Body.Raw != "" {
		ep.Body = ParseBody(r.Body.Raw)
	}
	return ep
}

// queryKeys keeps declared order and duplicates.
func queryKeys(query []KeyValue) []string {
	keys := make([]string, 0, len(query))
	for _, q := range query {
		if q.Key != "" {
			keys = append(keys, q.Key)
		}
	}
	return keys
}

func declaredVars(vars []KeyValue) []string {
	names := make([]string, 0, len(vars))
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if v.Key == "" {
			continue
		}
		if _, dup := seen[v.Key]; dup {
			continue
		}
		seen[v.Key] = struct{}{}
		names = append(names, v.Key)
	}
	return names
}

// SortEndpoints stably sorts by category, then method, then raw path.
func SortEndpoints(endpoints []Endpoint) {
	sort.SliceStable(endpoints, func(i, j int) bool {
		a, b := endpoints[i], endpoints[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.RawPath < b.RawPath
	})
}
