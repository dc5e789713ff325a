package merge

// Ambiguity records a template unit whose signature had several unconsumed
// destination candidates. The first candidate in document order was taken.
type Ambiguity struct {
	Signature  string `json:"signature"`
	Template   int    `json:"template"`
	Candidates []int  `json:"candidates"`
}

// MatchSet is the outcome of pairing two statement lists.
type MatchSet struct {
	// Pairs maps template index to destination index.
	Pairs map[int]int
	// Reverse maps destination index to template index.
	Reverse map[int]int

	TemplateOnly    []int
	DestinationOnly []int

	// Absorbed lists template units consumed by a destination freeze block
	// enclosing a unit with the same signature.
	Absorbed []int

	Ambiguities []Ambiguity
}

// Matched reports whether template unit ti has a destination counterpart.
func (m *MatchSet) Matched(ti int) (int, bool) {
	di, ok := m.Pairs[ti]
	return di, ok
}

// Match pairs template statements with destination statements by signature
// equality. Scanning follows template order; each template unit takes the
// first unconsumed destination unit with the same signature, so pairing is
// one-to-one. Synthetic units never take part.
func Match(tmpl, dest *StatementList) *MatchSet {
	ms := &MatchSet{
		Pairs:   make(map[int]int),
		Reverse: make(map[int]int),
	}

	candidates := make(map[Signature][]int)
	frozenInner := make(map[Signature]bool)
	for _, d := range dest.All() {
		if d.Synthetic {
			continue
		}
		if d.sig.Matchable() {
			candidates[d.sig] = append(candidates[d.sig], d.Index)
		}
		for _, s := range d.innerSigs {
			if s.Matchable() {
				frozenInner[s] = true
			}
		}
	}
	consumed := make(map[int]bool)

	for _, t := range tmpl.All() {
		if t.Synthetic {
			continue
		}
		if !t.sig.Matchable() {
			ms.TemplateOnly = append(ms.TemplateOnly, t.Index)
			continue
		}
		var open []int
		for _, di := range candidates[t.sig] {
			if !consumed[di] {
				open = append(open, di)
			}
		}
		if len(open) == 0 && t.IsFrozen() {
			if di, ok := frozenCounterpart(t, dest, consumed); ok {
				open = []int{di}
			}
		}
		if len(open) == 0 {
			if frozenInner[t.sig] {
				ms.Absorbed = append(ms.Absorbed, t.Index)
				continue
			}
			ms.TemplateOnly = append(ms.TemplateOnly, t.Index)
			continue
		}
		if len(open) > 1 {
			ms.Ambiguities = append(ms.Ambiguities, Ambiguity{
				Signature:  t.sig.String(),
				Template:   t.Index,
				Candidates: open,
			})
		}
		di := open[0]
		consumed[di] = true
		ms.Pairs[t.Index] = di
		ms.Reverse[di] = t.Index
	}

	for _, d := range dest.All() {
		if d.Synthetic {
			continue
		}
		if _, ok := ms.Reverse[d.Index]; !ok {
			ms.DestinationOnly = append(ms.DestinationOnly, d.Index)
		}
	}
	return ms
}

// frozenCounterpart finds an unconsumed destination freeze block enclosing
// at least one unit the template freeze block t also encloses. An edited
// freeze block still pairs with its template original this way.
func frozenCounterpart(t *Statement, dest *StatementList, consumed map[int]bool) (int, bool) {
	if len(t.innerSigs) == 0 {
		return 0, false
	}
	want := make(map[Signature]bool, len(t.innerSigs))
	for _, s := range t.innerSigs {
		if s.Matchable() {
			want[s] = true
		}
	}
	for _, d := range dest.All() {
		if consumed[d.Index] || !d.IsFrozen() {
			continue
		}
		for _, s := range d.innerSigs {
			if want[s] {
				return d.Index, true
			}
		}
	}
	return 0, false
}
