package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// Position says where injected content goes relative to the anchor.
type Position string

const (
	PositionBefore     Position = "before"
	PositionAfter      Position = "after"
	PositionFirstChild Position = "first_child"
	PositionLastChild  Position = "last_child"
	PositionReplace    Position = "replace"
)

// WhenMissing is the policy applied when no anchor matches.
type WhenMissing string

const (
	MissingSkip  WhenMissing = "skip"
	MissingAdd   WhenMissing = "add"
	MissingError WhenMissing = "error"
)

// InjectMode selects how a replace range is rewritten.
type InjectMode string

const (
	ModeWholesale InjectMode = "wholesale"
	ModeMerge     InjectMode = "merge"
)

// Predicate selects statements by kind, text and depth. Unset fields do not
// constrain. Kind is compared with the raw kind, the canonical kind and the
// node-typing tag. Pattern is matched against the unit's trimmed text.
type Predicate struct {
	Kind     string
	Pattern  *regexp.Regexp
	MinDepth int
	MaxDepth int

	// SameOrShallower, on a boundary, additionally requires the unit's depth
	// to be at most the anchor's.
	SameOrShallower bool

	// Match is an additional custom matcher.
	Match func(s *Statement) bool
}

// Injection configures a partial merge.
type Injection struct {
	Anchor   Predicate
	Boundary *Predicate

	Position    Position
	WhenMissing WhenMissing
	Mode        InjectMode
}

func (inj Injection) validate() error {
	switch inj.Position {
	case PositionBefore, PositionAfter, PositionFirstChild, PositionLastChild, PositionReplace:
	default:
		return &ConfigError{Field: "position", Reason: fmt.Sprintf("unknown position %q", inj.Position)}
	}
	switch inj.WhenMissing {
	case "", MissingSkip, MissingAdd, MissingError:
	default:
		return &ConfigError{Field: "when_missing", Reason: fmt.Sprintf("unknown policy %q", inj.WhenMissing)}
	}
	switch inj.Mode {
	case "", ModeWholesale, ModeMerge:
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", inj.Mode)}
	}
	if inj.Boundary != nil && inj.Position != PositionReplace {
		return &ConfigError{Field: "boundary", Reason: "only meaningful with position replace"}
	}
	if err := inj.Anchor.validate("anchor"); err != nil {
		return err
	}
	if inj.Boundary != nil {
		return inj.Boundary.validate("boundary")
	}
	return nil
}

func (p *Predicate) validate(field string) error {
	if p.MinDepth < 0 || p.MaxDepth < 0 {
		return &ConfigError{Field: field + ".depth", Reason: "depth constraints must not be negative"}
	}
	if p.MaxDepth > 0 && p.MinDepth > p.MaxDepth {
		return &ConfigError{Field: field + ".depth", Reason: fmt.Sprintf("min %d exceeds max %d", p.MinDepth, p.MaxDepth)}
	}
	return nil
}

// InjectionPoint is a resolved location in the destination.
type InjectionPoint struct {
	Anchor   *Statement
	Position Position
	Boundary *Statement
}

// InjectionPointFinder locates anchors and boundaries in a flattened
// destination.
type InjectionPointFinder struct {
	format string
	tag    func(ast.Node) string
	frozen []freeze.Span
}

// NewInjectionPointFinder returns a finder for statements of format. Units
// lying inside any of the frozen spans are never selected.
func NewInjectionPointFinder(format string, typing map[string]TypingFunc, frozen []freeze.Span) *InjectionPointFinder {
	f := &InjectionPointFinder{format: format, frozen: frozen}
	if len(typing) > 0 {
		b := &listBuilder{doc: &document{format: format}, typing: typing}
		f.tag = func(n ast.Node) string {
			_, tag := ast.Unwrap(b.tag(n))
			return tag
		}
	}
	return f
}

func (f *InjectionPointFinder) inFrozen(s *Statement) bool {
	sp, ok := s.Span()
	if !ok {
		return false
	}
	for _, fs := range f.frozen {
		if fs.StartLine <= sp.StartLine && sp.EndLine <= fs.EndLine {
			return true
		}
	}
	return false
}

func (f *InjectionPointFinder) matches(p *Predicate, s *Statement) bool {
	if p.Kind != "" {
		raw := s.Kind()
		ok := p.Kind == raw || p.Kind == ast.CanonicalKind(f.format, raw) || p.Kind == s.Tag()
		if !ok && f.tag != nil {
			ok = p.Kind == f.tag(s.Node)
		}
		if !ok {
			return false
		}
	}
	if p.Pattern != nil && !p.Pattern.MatchString(ast.NormalizeText(s.Node.Text())) {
		return false
	}
	if p.MinDepth > 0 || p.MaxDepth > 0 {
		d, ok := s.Depth()
		if !ok || (p.MinDepth > 0 && d < p.MinDepth) || (p.MaxDepth > 0 && d > p.MaxDepth) {
			return false
		}
	}
	if p.Match != nil && !p.Match(s) {
		return false
	}
	return true
}

// Find returns the first statement matching the anchor predicate and, for
// replace, the first later statement matching the boundary. Units without a
// tree depth are never boundaries.
func (f *InjectionPointFinder) Find(list *StatementList, inj Injection) (*InjectionPoint, bool) {
	for _, s := range list.All() {
		if s.Synthetic || !s.hasSpan || f.inFrozen(s) || !f.matches(&inj.Anchor, s) {
			continue
		}
		pt := &InjectionPoint{Anchor: s, Position: inj.Position}
		if inj.Position == PositionReplace && inj.Boundary != nil {
			pt.Boundary = f.boundary(s, inj.Boundary)
		}
		return pt, true
	}
	return nil, false
}

func (f *InjectionPointFinder) boundary(anchor *Statement, p *Predicate) *Statement {
	depth, hasDepth := anchor.Depth()
	for n := anchor.Next(); n != nil; n = n.Next() {
		if n.Synthetic || !n.hasSpan || n.span.StartLine <= anchor.span.StartLine {
			continue
		}
		if p.SameOrShallower {
			d, ok := n.Depth()
			if !ok || !hasDepth || d > depth {
				continue
			}
		}
		if f.matches(p, n) {
			return n
		}
	}
	return nil
}

// lineRange is an inclusive 1-based range; an empty range has End < Start.
type lineRange struct{ Start, End int }

// replaceRange computes the destination lines a replace injection rewrites.
// With a configured boundary the range runs to the line before it, or to the
// end of the document when no boundary matched. Trailing blank lines are
// left in place.
func (pt *InjectionPoint) replaceRange(lines []string, boundaryConfigured bool) lineRange {
	sp := pt.Anchor.span
	r := lineRange{Start: sp.StartLine, End: sp.EndLine}
	switch {
	case pt.Boundary != nil:
		r.End = pt.Boundary.span.StartLine - 1
	case boundaryConfigured:
		r.End = len(lines)
	}
	for r.End > r.Start && strings.TrimSpace(lines[r.End-1]) == "" {
		r.End--
	}
	return r
}

// insertAfter returns the line after which positional content goes; 0 means
// the top of the document.
func (pt *InjectionPoint) insertAfter() int {
	a := pt.Anchor
	switch pt.Position {
	case PositionBefore:
		return a.span.StartLine - 1
	case PositionAfter:
		return a.span.EndLine
	case PositionFirstChild:
		for _, k := range a.kids {
			if k.hasSpan && k.span.StartLine > a.span.StartLine {
				return k.span.StartLine - 1
			}
		}
		return a.span.StartLine
	case PositionLastChild:
		for i := len(a.kids) - 1; i >= 0; i-- {
			if k := a.kids[i]; k.hasSpan && k.span.StartLine > a.span.StartLine {
				return k.span.EndLine
			}
		}
		return a.span.StartLine
	}
	return a.span.EndLine
}

// clearOfFreeze moves an insertion point that would split a freeze block to
// the end of that block.
func clearOfFreeze(after int, spans []freeze.Span) int {
	for _, fs := range spans {
		if fs.StartLine <= after && after < fs.EndLine {
			return fs.EndLine
		}
	}
	return after
}

// widenForFreeze grows r until no freeze block straddles its edges, and
// reports whether any freeze block lies inside it.
func widenForFreeze(r lineRange, spans []freeze.Span) (lineRange, bool) {
	touched := false
	for changed := true; changed; {
		changed = false
		for _, fs := range spans {
			if fs.EndLine < r.Start || fs.StartLine > r.End {
				continue
			}
			touched = true
			if fs.StartLine < r.Start {
				r.Start, changed = fs.StartLine, true
			}
			if fs.EndLine > r.End {
				r.End, changed = fs.EndLine, true
			}
		}
	}
	return r, touched
}

// inject applies fragment to destination at the point inj selects.
func (e *Engine) inject(fragment, destination string, inj Injection) (*Result, error) {
	if err := inj.validate(); err != nil {
		return nil, err
	}
	ddoc, err := e.load(SideDestination, destination)
	if err != nil {
		return nil, err
	}
	lines := ddoc.lines
	frag := strings.TrimSuffix(fragment, "\n")
	res := &Result{trailingNewline: ddoc.trailingNewline || (len(lines) == 0 && strings.HasSuffix(fragment, "\n"))}
	keep := func(lo, hi int) {
		if lo <= hi {
			res.Fragments = append(res.Fragments, Fragment{
				Content:  ddoc.slice(ast.Span{StartLine: lo, EndLine: hi}),
				Decision: DecisionKeptDestination,
			})
		}
	}

	finder := NewInjectionPointFinder(ddoc.format, e.opts.NodeTyping, ddoc.frozen)
	pt, ok := finder.Find(flatten(ddoc.root, ddoc), inj)
	if !ok {
		policy := inj.WhenMissing
		if policy == "" {
			policy = MissingSkip
		}
		e.log.Debug("injection anchor not found", "policy", policy)
		switch policy {
		case MissingError:
			return nil, fmt.Errorf("%w: kind %q pattern %v", ErrAnchorNotFound, inj.Anchor.Kind, inj.Anchor.Pattern)
		case MissingAdd:
			keep(1, len(lines))
			if frag != "" {
				res.Fragments = append(res.Fragments, Fragment{Content: frag, Decision: DecisionAppended})
			}
		default:
			keep(1, len(lines))
		}
		return res, nil
	}
	e.log.Debug("injection anchor resolved",
		"kind", pt.Anchor.Kind(),
		"line", pt.Anchor.span.StartLine,
		"position", pt.Position)

	if pt.Position != PositionReplace {
		after := clearOfFreeze(pt.insertAfter(), ddoc.frozen)
		keep(1, after)
		if frag != "" {
			res.Fragments = append(res.Fragments, Fragment{Content: frag, Decision: DecisionAdded, Kind: pt.Anchor.Kind()})
		}
		keep(after+1, len(lines))
		return res, nil
	}

	r := pt.replaceRange(lines, inj.Boundary != nil)
	r, frozen := widenForFreeze(r, ddoc.frozen)
	mode := inj.Mode
	if mode == "" {
		mode = ModeWholesale
	}
	if frozen && mode == ModeWholesale {
		e.log.Debug("replace range holds frozen content, merging instead")
		mode = ModeMerge
	}

	keep(1, r.Start-1)
	section := ddoc.slice(ast.Span{StartLine: r.Start, EndLine: r.End})
	switch mode {
	case ModeMerge:
		sub, err := e.mergeResult(frag+"\n", section+"\n")
		if err != nil {
			return nil, fmt.Errorf("merging injected section: %w", err)
		}
		res.Fragments = append(res.Fragments, Fragment{
			Content:  strings.TrimSuffix(sub.Content(), "\n"),
			Decision: DecisionMerged,
			Kind:     pt.Anchor.Kind(),
			Children: sub.Fragments,
		})
		res.Ambiguities = append(res.Ambiguities, sub.Ambiguities...)
		res.Regions = append(res.Regions, sub.Regions...)
	default:
		if frag != "" {
			res.Fragments = append(res.Fragments, Fragment{Content: frag, Decision: DecisionReplaced, Kind: pt.Anchor.Kind()})
		}
	}
	keep(r.End+1, len(lines))
	return res, nil
}
