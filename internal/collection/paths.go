package collection

import (
	"regexp"
	"strings"
)

var (
	// Identifiers are Unicode letters, digits and underscores.
	colonMarker = regexp.MustCompile(`:([\p{L}\p{N}_]+)`)
	anyMarker   = regexp.MustCompile(`:([\p{L}\p{N}_]+)|\{([\p{L}\p{N}_]+)\}`)
)

// DisplayPath rewrites every ":name" marker to "{name}". The result is for
// presentation only; invocation uses the raw path.
func DisplayPath(raw string) string {
	return colonMarker.ReplaceAllString(raw, "{$1}")
}

// ScanPathVars returns the identifiers of ":name" and "{name}" markers in
// path, each once, in order of first appearance.
func ScanPathVars(path string) []string {
	vars := []string{}
	seen := map[string]struct{}{}
	for _, m := range anyMarker.FindAllStringSubmatch(path, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		vars = append(vars, name)
	}
	return vars
}

// Substitute replaces ":name" and "{name}" markers with the matching value
// from params. Markers match whole identifiers only, so ":id" leaves ":idx"
// alone. Markers without a value are kept.
func Substitute(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	return anyMarker.ReplaceAllStringFunc(path, func(marker string) string {
		if v, ok := params[strings.Trim(marker, ":{}")]; ok {
			return v
		}
		return marker
	})
}

// MatchPath reports whether invoked is an instance of template, treating
// every marker in template as one non-empty path segment. Leading and
// trailing slashes are ignored.
func MatchPath(template, invoked string) bool {
	template = strings.Trim(template, "/")
	invoked = strings.Trim(invoked, "/")
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range anyMarker.FindAllStringIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		b.WriteString(`[^/]+`)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(template[last:]))
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(invoked)
}
