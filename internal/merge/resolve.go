package merge

import (
	"log/slog"
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
)

// resolver applies the conflict-resolution rules to a pair of statement
// lists, recursing into containers.
type resolver struct {
	opts *Options
	log  *slog.Logger

	tmpl, dest *listBuilder

	ambiguities []Ambiguity
}

// resolveLists walks the destination in document order, emitting one
// fragment per unit. Template-only units that are wanted are emitted right
// after the destination counterpart of their nearest preceding matched
// template unit. Those ahead of every matched unit go before the counterpart
// of the first one, and only lists with no match at all get them at the end.
func (r *resolver) resolveLists(tl, dl *StatementList, sp spacing) []Fragment {
	ms := Match(tl, dl)
	r.ambiguities = append(r.ambiguities, ms.Ambiguities...)

	templateOnly := make(map[int]bool, len(ms.TemplateOnly))
	for _, ti := range ms.TemplateOnly {
		templateOnly[ti] = true
	}

	additions := make(map[int][]*Statement)
	leading := make(map[int][]*Statement)
	var pending []*Statement
	anchor := -1
	for _, t := range tl.All() {
		if di, ok := ms.Matched(t.Index); ok {
			if anchor < 0 && len(pending) > 0 {
				leading[leadingSlot(dl, di)] = pending
				pending = nil
			}
			anchor = di
			continue
		}
		if !templateOnly[t.Index] || !r.opts.wantsAdd(t.Node) {
			continue
		}
		if anchor >= 0 {
			additions[anchor] = append(additions[anchor], t)
		} else {
			pending = append(pending, t)
		}
	}

	r.log.Debug("resolved matches",
		"template_units", tl.Len(),
		"destination_units", dl.Len(),
		"pairs", len(ms.Pairs),
		"template_only", len(ms.TemplateOnly),
		"destination_only", len(ms.DestinationOnly),
		"absorbed", len(ms.Absorbed))

	out := &emitter{sp: sp, frags: make([]Fragment, 0, dl.Len()+len(pending))}
	for _, d := range dl.All() {
		if group := leading[d.Index]; len(group) > 0 {
			out.added(group...)
			out.close(group[len(group)-1], d, ms)
		}
		if ti, ok := ms.Reverse[d.Index]; ok {
			out.emit(r.resolvePair(tl.At(ti), d), tl.At(ti))
		} else {
			out.emit(r.destinationOnly(d), nil)
		}
		out.added(additions[d.Index]...)
	}
	out.added(pending...)
	return out.frags
}

// leadingSlot moves a leading insertion before the destination's opening
// gap when only gaps precede the anchor, keeping it on the first line.
func leadingSlot(dl *StatementList, di int) int {
	for i := 0; i < di; i++ {
		if !dl.At(i).Synthetic {
			return di
		}
	}
	return 0
}

// spacing is the blank-line run put between an added unit and a destination
// unit it would otherwise touch.
type spacing struct {
	text string
	ok   bool
}

func blankGap(s *Statement) bool {
	return s.Synthetic && strings.TrimSpace(s.Text()) == ""
}

// listSpacing takes the first blank gap found in lists, in order.
func listSpacing(lists ...*StatementList) spacing {
	for _, l := range lists {
		for _, s := range l.All() {
			if blankGap(s) {
				return spacing{text: s.Text(), ok: true}
			}
		}
	}
	return spacing{}
}

// headerSpacing returns the blank lines ending the header of container s,
// whose children start on line first.
func headerSpacing(s *Statement, first int) spacing {
	lo := first
	for lo-1 > s.span.StartLine && strings.TrimSpace(s.doc.lines[lo-2]) == "" {
		lo--
	}
	if lo == first {
		return spacing{}
	}
	return spacing{text: s.doc.slice(ast.Span{StartLine: lo, EndLine: first - 1}), ok: true}
}

// emitter collects the fragments of one list and tracks which template
// unit the last fragment came from.
type emitter struct {
	sp    spacing
	frags []Fragment
	last  *Statement
}

func (o *emitter) emit(f Fragment, from *Statement) {
	o.frags = append(o.frags, f)
	o.last = from
}

func (o *emitter) gap(text string) {
	o.emit(Fragment{Content: text, Decision: DecisionAdded, Kind: kindGap, Synthetic: true}, nil)
}

// touching reports whether the next fragment would sit directly against a
// non-synthetic one.
func (o *emitter) touching() bool {
	return len(o.frags) > 0 && !o.frags[len(o.frags)-1].Synthetic
}

// added renders template-only units with the template lines that precede
// them. A unit whose template neighbour is not what it follows in the output
// gets the list spacing instead.
func (o *emitter) added(ts ...*Statement) {
	for _, t := range ts {
		switch p := t.Prev(); {
		case p != nil && p.Synthetic:
			o.gap(p.Text())
		case o.touching() && (p == nil || o.last != p) && o.sp.ok:
			o.gap(o.sp.text)
		}
		o.emit(Fragment{Content: t.Text(), Decision: DecisionAdded, Kind: t.Kind()}, t)
	}
}

// close separates a leading group ending in t from destination unit d the
// way the template separates t from what follows it.
func (o *emitter) close(t, d *Statement, ms *MatchSet) {
	if d.Synthetic {
		return
	}
	n := t.Next()
	switch {
	case n != nil && n.Synthetic:
		o.gap(n.Text())
	case o.sp.ok:
		if ti, ok := ms.Reverse[d.Index]; !ok || n == nil || n.Index != ti {
			o.gap(o.sp.text)
		}
	}
}

func (r *resolver) destinationOnly(d *Statement) Fragment {
	f := Fragment{Content: d.Text(), Decision: DecisionKeptDestination, Kind: d.Kind(), Synthetic: d.Synthetic}
	if d.IsFrozen() {
		f.Decision = DecisionFrozen
	}
	return f
}

// preferenceKeys lists the lookup keys for a matched pair: node-typing tag,
// canonical kind, raw kind.
func (r *resolver) preferenceKeys(t, d *Statement) []string {
	tag := d.Tag()
	if tag == "" {
		tag = t.Tag()
	}
	raw := d.Kind()
	return []string{tag, ast.CanonicalKind(r.dest.doc.format, raw), raw}
}

func (r *resolver) resolvePair(t, d *Statement) Fragment {
	kind := d.Kind()
	if t.IsFrozen() || d.IsFrozen() {
		src := d
		if !d.IsFrozen() {
			src = t
		}
		return Fragment{Content: src.Text(), Decision: DecisionFrozen, Kind: kind}
	}

	tt, dt := t.Text(), d.Text()
	if tt == dt {
		return Fragment{Content: dt, Decision: DecisionIdentical, Kind: kind}
	}

	side := r.opts.Preference.For(r.preferenceKeys(t, d)...)

	if f, ok := r.resolveContainer(t, d, side); ok {
		return f
	}

	switch {
	case len(d.deferred) > 0:
		return Fragment{Content: dt, Decision: DecisionFrozen, Kind: kind}
	case len(t.deferred) > 0:
		return Fragment{Content: tt, Decision: DecisionFrozen, Kind: kind}
	}

	if side == SideTemplate {
		return Fragment{Content: tt, Decision: DecisionKeptTemplate, Kind: kind}
	}
	return Fragment{Content: dt, Decision: DecisionKeptDestination, Kind: kind}
}

// recursable reports whether a unit's children can be merged line by line:
// it must be a plain container whose children all carry spans and start
// below the unit's first line.
func recursable(s *Statement) bool {
	if s.Synthetic || s.IsFrozen() || len(s.Members) > 0 || !s.hasSpan || s.doc == nil {
		return false
	}
	kids := s.Node.Children()
	if len(kids) == 0 {
		return false
	}
	first, ok := kids[0].Span()
	if !ok || first.StartLine <= s.span.StartLine {
		return false
	}
	for _, k := range kids {
		sp, ok := k.Span()
		if !ok || sp.StartLine < s.span.StartLine || sp.EndLine > s.span.EndLine {
			return false
		}
	}
	return true
}

// resolveContainer merges the children of two matched containers and
// splices them between the preferred side's header and footer lines.
func (r *resolver) resolveContainer(t, d *Statement, side Side) (Fragment, bool) {
	if !recursable(t) || !recursable(d) {
		return Fragment{}, false
	}
	tl, tCovered, tok := r.tmpl.build(t.Node.Children(), nil, t.deferred)
	dl, dCovered, dok := r.dest.build(d.Node.Children(), nil, d.deferred)
	if !tok || !dok {
		return Fragment{}, false
	}
	if tCovered.StartLine <= t.span.StartLine || dCovered.StartLine <= d.span.StartLine {
		return Fragment{}, false
	}

	sp := listSpacing(dl, tl)
	if !sp.ok {
		sp = headerSpacing(t, tCovered.StartLine)
	}
	if !sp.ok {
		sp = headerSpacing(d, dCovered.StartLine)
	}
	kids := r.resolveLists(tl, dl, sp)

	frame, covered := d, dCovered
	if side == SideTemplate {
		frame, covered = t, tCovered
	}
	var parts []string
	if head := (ast.Span{StartLine: frame.span.StartLine, EndLine: covered.StartLine - 1}); head.StartLine <= head.EndLine {
		parts = append(parts, frame.doc.slice(head))
	}
	for _, k := range kids {
		parts = append(parts, k.Content)
	}
	if foot := (ast.Span{StartLine: covered.EndLine + 1, EndLine: frame.span.EndLine}); foot.StartLine <= foot.EndLine {
		parts = append(parts, frame.doc.slice(foot))
	}
	content := strings.Join(parts, "\n")

	decision := DecisionRecursive
	if content != t.Text() && content != d.Text() {
		decision = DecisionMerged
	}
	return Fragment{Content: content, Decision: decision, Kind: d.Kind(), Children: kids}, true
}
