// Package ast defines the read-only node view the merge engine works on.
// Every parser backend converts its own tree into values satisfying Node;
// the engine never inspects a backend's native types.
package ast

import "strings"

// Span is an inclusive, 1-based line range in a source document.
type Span struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Contains reports whether line falls inside the span.
func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Overlaps reports whether two spans share at least one line.
func (s Span) Overlaps(o Span) bool {
	return s.StartLine <= o.EndLine && o.StartLine <= s.EndLine
}

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	out := s
	if o.StartLine < out.StartLine {
		out.StartLine = o.StartLine
	}
	if o.EndLine > out.EndLine {
		out.EndLine = o.EndLine
	}
	return out
}

// Node is the uniform view of one parse-tree element.
//
// Signature is an optional capability: adapters that know a better identity
// key than kind+text return it with ok=true. Adapters that do not care embed
// Base, which supplies the no-op default.
type Node interface {
	Kind() string
	Text() string
	Children() []Node
	Span() (Span, bool)
	Signature() (parts []string, ok bool)
}

// Base provides default implementations of the optional Node capabilities.
type Base struct{}

// Signature reports that the node has no adapter-specific signature.
func (Base) Signature() ([]string, bool) { return nil, false }

// Element is a general-purpose Node used by most backends.
type Element struct {
	NodeKind string
	Content  string
	Kids     []Node
	Lines    Span
	HasLines bool

	// Sig, when non-empty, is returned by Signature.
	Sig []string
}

func (e *Element) Kind() string     { return e.NodeKind }
func (e *Element) Text() string     { return e.Content }
func (e *Element) Children() []Node { return e.Kids }

func (e *Element) Span() (Span, bool) { return e.Lines, e.HasLines }

func (e *Element) Signature() ([]string, bool) {
	if len(e.Sig) == 0 {
		return nil, false
	}
	return e.Sig, true
}

// Typed tags a node with a logical kind used for preference lookup. The
// wrapped node is otherwise unchanged; AsNode returns it.
type Typed struct {
	Inner Node
	Tag   string
}

// AsNode returns the wrapped node.
func (t *Typed) AsNode() Node { return t.Inner }

func (t *Typed) Kind() string                { return t.Inner.Kind() }
func (t *Typed) Text() string                { return t.Inner.Text() }
func (t *Typed) Children() []Node            { return t.Inner.Children() }
func (t *Typed) Span() (Span, bool)          { return t.Inner.Span() }
func (t *Typed) Signature() ([]string, bool) { return t.Inner.Signature() }

// Unwrap strips any Typed wrappers and returns the underlying node together
// with the outermost tag, if one was assigned.
func Unwrap(n Node) (Node, string) {
	tag := ""
	for {
		t, ok := n.(*Typed)
		if !ok {
			return n, tag
		}
		if tag == "" {
			tag = t.Tag
		}
		n = t.Inner
	}
}

// NormalizeText trims surrounding whitespace; case is preserved.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

// Walk calls fn for n and every descendant in pre-order, with the depth of
// each node (n itself has depth 0). Returning false from fn skips the node's
// children.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children() {
		walk(c, depth+1, fn)
	}
}
