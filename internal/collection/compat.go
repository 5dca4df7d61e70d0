package collection

import "strings"

// parseURLString turns a url given as one string (Postman v2.0, or a bare
// "request": "<url>") into a descriptor. The scheme and host, including a
// {{variable}} host placeholder, are dropped; the query string becomes the
// query declaration list.
//
//	"{{baseUrl}}/v1/dosen/:id?limit=10&page" -> path v1/dosen/:id, query [limit page]
func parseURLString(raw string) URL {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	pathPart, queryPart, _ := strings.Cut(raw, "?")

	if i := strings.Index(pathPart, "://"); i >= 0 {
		pathPart = dropFirstSegment(pathPart[i+3:])
	} else if first, _, _ := strings.Cut(strings.TrimLeft(pathPart, "/"), "/"); strings.HasPrefix(first, "{{") || strings.Contains(first, ".") {
		pathPart = dropFirstSegment(strings.TrimLeft(pathPart, "/"))
	}

	u := URL{Segments: []string{}}
	if trimmed := strings.Trim(pathPart, "/"); trimmed != "" {
		u.Segments = strings.Split(trimmed, "/")
	}
	for _, pair := range strings.Split(queryPart, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		u.Query = append(u.Query, KeyValue{Key: key, Value: value})
	}
	return u
}

func dropFirstSegment(s string) string {
	if _, rest, ok := strings.Cut(s, "/"); ok {
		return rest
	}
	return ""
}
