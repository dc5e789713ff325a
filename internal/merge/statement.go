package merge

import (
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// Kinds the engine assigns to units it builds itself.
const (
	kindFrozen = "frozen"
	kindGap    = "gap"
	kindGroup  = "group"
)

// document is one parsed input.
type document struct {
	side            Side
	format          string
	lines           []string
	trailingNewline bool
	root            ast.Node
	frozen          []freeze.Span
}

func splitLines(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(s, "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n"), trailing
}

func (d *document) slice(sp ast.Span) string {
	lo, hi := sp.StartLine, sp.EndLine
	if lo < 1 {
		lo = 1
	}
	if hi > len(d.lines) {
		hi = len(d.lines)
	}
	if lo > hi {
		return ""
	}
	return strings.Join(d.lines[lo-1:hi], "\n")
}

// FrozenNode is a freeze block presented as a single opaque node.
type FrozenNode struct {
	ast.Base

	Lines    ast.Span
	Reason   string
	Verbatim string
}

func (f *FrozenNode) Kind() string           { return kindFrozen }
func (f *FrozenNode) Text() string           { return f.Verbatim }
func (f *FrozenNode) Children() []ast.Node   { return nil }
func (f *FrozenNode) Span() (ast.Span, bool) { return f.Lines, true }

// Statement is one addressable unit in a flattened document: a parse node,
// a coalesced group of nodes sharing lines, a freeze block, or a synthetic
// gap of uncovered lines.
type Statement struct {
	Index int
	Node  ast.Node

	// Members holds every node coalesced into a line group.
	Members []ast.Node

	Synthetic bool

	span    ast.Span
	hasSpan bool
	doc     *document

	prev, next *Statement

	hierarchical bool
	depth        int
	parent       *Statement
	kids         []*Statement

	sig Signature

	// innerSigs are the signatures of the parse units a freeze block absorbed.
	innerSigs []Signature

	// deferred are freeze spans strictly inside this unit, applied when the
	// unit's children are resolved.
	deferred []freeze.Span
}

// Prev returns the previous statement in flat order.
func (s *Statement) Prev() *Statement { return s.prev }

// Next returns the next statement in flat order.
func (s *Statement) Next() *Statement { return s.next }

// Parent returns the enclosing statement, or nil at the top level and for
// units without hierarchical links.
func (s *Statement) Parent() *Statement { return s.parent }

// Depth returns the tree depth (top-level units are 1). ok is false for
// synthetic units and lists built without hierarchy.
func (s *Statement) Depth() (int, bool) { return s.depth, s.hierarchical }

// Children returns hierarchical child statements.
func (s *Statement) Children() []*Statement { return s.kids }

// NextSibling returns the next statement sharing this statement's parent.
func (s *Statement) NextSibling() *Statement {
	if !s.hierarchical {
		return nil
	}
	for n := s.next; n != nil; n = n.next {
		if !n.hierarchical {
			continue
		}
		if n.depth < s.depth {
			return nil
		}
		if n.depth == s.depth && n.parent == s.parent {
			return n
		}
	}
	return nil
}

// Span returns the unit's line range.
func (s *Statement) Span() (ast.Span, bool) { return s.span, s.hasSpan }

// Signature returns the unit's matching key.
func (s *Statement) Signature() Signature { return s.sig }

// IsFrozen reports whether the unit is a freeze block.
func (s *Statement) IsFrozen() bool {
	_, ok := s.Node.(*FrozenNode)
	return ok
}

// Kind returns the raw kind of the underlying node.
func (s *Statement) Kind() string {
	n, _ := ast.Unwrap(s.Node)
	return n.Kind()
}

// Tag returns the node-typing tag, if any.
func (s *Statement) Tag() string {
	_, tag := ast.Unwrap(s.Node)
	return tag
}

// Text returns the unit's verbatim source text.
func (s *Statement) Text() string {
	if s.hasSpan && s.doc != nil && len(s.doc.lines) > 0 {
		return s.doc.slice(s.span)
	}
	return s.Node.Text()
}

// StatementList is an ordered sequence of statements.
type StatementList struct {
	items []*Statement
}

// Len returns the number of statements.
func (l *StatementList) Len() int { return len(l.items) }

// At returns the statement at index i.
func (l *StatementList) At(i int) *Statement { return l.items[i] }

// All returns the statements in order.
func (l *StatementList) All() []*Statement { return l.items }

// First returns the first statement, or nil.
func (l *StatementList) First() *Statement {
	if len(l.items) == 0 {
		return nil
	}
	return l.items[0]
}

func newStatementList(items []*Statement) *StatementList {
	for i, s := range items {
		s.Index = i
		s.prev, s.next = nil, nil
		if i > 0 {
			s.prev = items[i-1]
			items[i-1].next = s
		}
	}
	return &StatementList{items: items}
}

// listBuilder turns sibling nodes into a statement list: node typing,
// line-group coalescing, freeze overlay, gap synthesis and signatures.
type listBuilder struct {
	doc    *document
	gen    SignatureGenerator
	typing map[string]TypingFunc
}

func (b *listBuilder) tag(n ast.Node) ast.Node {
	if len(b.typing) == 0 {
		return n
	}
	raw := n.Kind()
	fn, ok := b.typing[ast.CanonicalKind(b.doc.format, raw)]
	if !ok {
		fn, ok = b.typing[raw]
	}
	if !ok {
		return n
	}
	if tag := fn(n); tag != "" {
		return &ast.Typed{Inner: n, Tag: tag}
	}
	return n
}

// build creates the list for nodes. spans are the freeze blocks to overlay
// at this level. Gap synthesis covers bounds, or the extent of the units
// when bounds is nil; the covered range is returned with ok=false when no
// gap synthesis was possible.
func (b *listBuilder) build(nodes []ast.Node, bounds *ast.Span, spans []freeze.Span) (list *StatementList, covered ast.Span, ok bool) {
	units := b.coalesce(nodes)
	units = b.overlay(units, spans)
	if bounds != nil {
		covered, ok = *bounds, true
	} else {
		covered, ok = extent(units)
	}
	if ok {
		units = b.gaps(units, covered)
	}
	for _, u := range units {
		b.sign(u)
	}
	return newStatementList(units), covered, ok
}

func extent(units []*Statement) (ast.Span, bool) {
	if len(units) == 0 {
		return ast.Span{}, false
	}
	out := ast.Span{StartLine: -1}
	for _, u := range units {
		if !u.hasSpan {
			return ast.Span{}, false
		}
		if out.StartLine < 0 {
			out = u.span
			continue
		}
		out = out.Union(u.span)
	}
	return out, true
}

func (b *listBuilder) coalesce(nodes []ast.Node) []*Statement {
	var units []*Statement
	for _, n := range nodes {
		n = b.tag(n)
		sp, ok := n.Span()
		if ok && len(units) > 0 {
			last := units[len(units)-1]
			if last.hasSpan && sp.StartLine <= last.span.EndLine {
				if len(last.Members) == 0 {
					last.Members = []ast.Node{last.Node}
				}
				last.Members = append(last.Members, n)
				last.span = last.span.Union(sp)
				continue
			}
		}
		units = append(units, &Statement{Node: n, span: sp, hasSpan: ok, doc: b.doc})
	}
	return units
}

func hasChildren(s *Statement) bool {
	return len(s.Members) == 0 && len(s.Node.Children()) > 0
}

// overlay replaces the units each freeze span touches with one frozen unit.
// A span lying strictly inside a single container unit (below its first
// line) is deferred to that unit's children.
func (b *listBuilder) overlay(units []*Statement, spans []freeze.Span) []*Statement {
	for _, fs := range spans {
		fsp := ast.Span{StartLine: fs.StartLine, EndLine: fs.EndLine}
		var hit []int
		for i, u := range units {
			if u.hasSpan && u.span.Overlaps(fsp) {
				hit = append(hit, i)
			}
		}
		if len(hit) == 1 {
			u := units[hit[0]]
			if hasChildren(u) && u.span.StartLine < fsp.StartLine && fsp.EndLine <= u.span.EndLine {
				u.deferred = append(u.deferred, fs)
				continue
			}
		}

		covered := fsp
		var inner []Signature
		for _, i := range hit {
			covered = covered.Union(units[i].span)
			inner = append(inner, b.innerSignatures(units[i])...)
		}
		frozen := &Statement{
			Node: &FrozenNode{
				Lines:    covered,
				Reason:   fs.Reason,
				Verbatim: b.doc.slice(covered),
			},
			span:      covered,
			hasSpan:   true,
			doc:       b.doc,
			innerSigs: inner,
		}

		out := make([]*Statement, 0, len(units)+1)
		inserted := false
		for i, u := range units {
			if len(hit) > 0 && i >= hit[0] && i <= hit[len(hit)-1] {
				if !inserted {
					out = append(out, frozen)
					inserted = true
				}
				continue
			}
			if !inserted && u.hasSpan && u.span.StartLine > covered.EndLine {
				out = append(out, frozen)
				inserted = true
			}
			out = append(out, u)
		}
		if !inserted {
			out = append(out, frozen)
		}
		units = out
	}
	return units
}

func (b *listBuilder) innerSignatures(u *Statement) []Signature {
	if u.IsFrozen() {
		return u.innerSigs
	}
	var out []Signature
	if len(u.Members) > 0 {
		for _, m := range u.Members {
			out = append(out, b.gen.Of(m))
		}
		return out
	}
	ast.Walk(u.Node, func(n ast.Node, _ int) bool {
		out = append(out, b.gen.Of(n))
		return true
	})
	return out
}

// gaps inserts synthetic units for lines inside bounds that no unit covers.
func (b *listBuilder) gaps(units []*Statement, bounds ast.Span) []*Statement {
	for _, u := range units {
		if !u.hasSpan {
			return units
		}
	}
	out := make([]*Statement, 0, len(units)*2)
	next := bounds.StartLine
	emit := func(lo, hi int) {
		if lo > hi {
			return
		}
		sp := ast.Span{StartLine: lo, EndLine: hi}
		out = append(out, &Statement{
			Node:      &ast.Element{NodeKind: kindGap, Content: b.doc.slice(sp), Lines: sp, HasLines: true},
			Synthetic: true,
			span:      sp,
			hasSpan:   true,
			doc:       b.doc,
		})
	}
	for _, u := range units {
		emit(next, u.span.StartLine-1)
		out = append(out, u)
		if u.span.EndLine+1 > next {
			next = u.span.EndLine + 1
		}
	}
	emit(next, bounds.EndLine)
	return out
}

func (b *listBuilder) sign(u *Statement) {
	switch {
	case u.Synthetic:
		u.sig = NoSignature
	case u.IsFrozen():
		u.sig = frozenSignature(u.Text())
	case len(u.Members) > 0:
		parts := make([]string, 0, len(u.Members)+1)
		parts = append(parts, kindGroup)
		for _, m := range u.Members {
			parts = append(parts, string(b.gen.Of(m)))
		}
		u.sig = NewSignature(parts...)
	default:
		u.sig = b.gen.Of(u.Node)
	}
}

// Flatten builds a pre-order statement list over every node below root with
// hierarchical links. Top-level units have depth 1.
func Flatten(root ast.Node) *StatementList {
	return flatten(root, nil)
}

func flatten(root ast.Node, doc *document) *StatementList {
	var items []*Statement
	var visit func(n ast.Node, depth int, parent *Statement)
	visit = func(n ast.Node, depth int, parent *Statement) {
		sp, ok := n.Span()
		s := &Statement{
			Node:         n,
			span:         sp,
			hasSpan:      ok,
			doc:          doc,
			hierarchical: true,
			depth:        depth,
			parent:       parent,
		}
		if parent != nil {
			parent.kids = append(parent.kids, s)
		}
		items = append(items, s)
		for _, c := range n.Children() {
			visit(c, depth+1, s)
		}
	}
	for _, c := range root.Children() {
		visit(c, 1, nil)
	}
	return newStatementList(items)
}
