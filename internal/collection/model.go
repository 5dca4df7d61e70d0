package collection

import "strings"

// Internal model of a Postman-style collection. A Collection is decoded once
// and never mutated afterwards.

type Collection struct {
	Name  string
	Items []Node
}

// Node is either a *Group or a *Request.
type Node interface {
	NodeName() string
}

// Group is a folder of nodes. Its name becomes part of the breadcrumb of every
// request below it.
type Group struct {
	Name     string
	Children []Node
}

func (g *Group) NodeName() string { return g.Name }

// Request is a single callable operation.
type Request struct {
	Name        string
	Description string
	Method      string
	URL         URL
	Body        *RequestBody
}

func (r *Request) NodeName() string { return r.Name }

// URL is the url descriptor of a request.
type URL struct {
	// Segments is set when the path was given as a list of segments.
	Segments []string
	// PathText is the path when it was given as a single string.
	PathText  string
	Query     []KeyValue
	Variables []KeyValue
}

// RawPath is the path used for invocation: segments joined by "/", or the
// path string verbatim.
func (u URL) RawPath() string {
	if u.Segments != nil {
		return strings.Join(u.Segments, "/")
	}
	return u.PathText
}

type KeyValue struct {
	Key      string
	Value    string
	Disabled bool
}

type RequestBody struct {
	Mode string
	Raw  string
}
