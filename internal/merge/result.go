package merge

import (
	"sort"
	"strconv"
	"strings"
)

// Decision records how one output fragment was produced.
type Decision string

const (
	DecisionIdentical       Decision = "identical"
	DecisionKeptTemplate    Decision = "kept_template"
	DecisionKeptDestination Decision = "kept_destination"
	DecisionMerged          Decision = "merged"
	DecisionAdded           Decision = "added"
	DecisionFrozen          Decision = "frozen"
	DecisionReplaced        Decision = "replaced"
	DecisionAppended        Decision = "appended"
	DecisionRecursive       Decision = "recursive"
)

// AllDecisions lists every decision in a stable order.
var AllDecisions = []Decision{
	DecisionIdentical, DecisionKeptTemplate, DecisionKeptDestination,
	DecisionMerged, DecisionAdded, DecisionFrozen,
	DecisionReplaced, DecisionAppended, DecisionRecursive,
}

// Fragment is one rendered piece of output. Content holds one or more lines
// without a trailing newline.
type Fragment struct {
	Content   string     `json:"content"`
	Decision  Decision   `json:"decision"`
	Kind      string     `json:"kind,omitempty"`
	Synthetic bool       `json:"synthetic,omitempty"`
	Children  []Fragment `json:"children,omitempty"`
}

// RegionOutcome records how one embedded region was re-inserted.
type RegionOutcome struct {
	Index    int      `json:"index"`
	Kind     string   `json:"kind"`
	Decision Decision `json:"decision"`
}

// Result accumulates the ordered output of a merge.
type Result struct {
	Fragments   []Fragment      `json:"fragments"`
	Regions     []RegionOutcome `json:"regions,omitempty"`
	Ambiguities []Ambiguity     `json:"ambiguities,omitempty"`

	trailingNewline bool
	content         *string
}

// Content renders the merged document.
func (r *Result) Content() string {
	if r.content != nil {
		return *r.content
	}
	return renderFragments(r.Fragments, r.trailingNewline)
}

func (r *Result) setContent(s string) { r.content = &s }

func renderFragments(frags []Fragment, trailingNewline bool) string {
	if len(frags) == 0 {
		return ""
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Content
	}
	out := strings.Join(parts, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out
}

// Decisions returns the decision of every non-synthetic top-level fragment,
// in output order.
func (r *Result) Decisions() []Decision {
	var out []Decision
	for _, f := range r.Fragments {
		if !f.Synthetic {
			out = append(out, f.Decision)
		}
	}
	return out
}

// Stats counts Decisions by kind.
func (r *Result) Stats() map[Decision]int {
	stats := make(map[Decision]int)
	for _, d := range r.Decisions() {
		stats[d]++
	}
	return stats
}

// Walk visits every fragment, nested ones included, depth first.
func (r *Result) Walk(fn func(f Fragment, depth int)) {
	var visit func(fs []Fragment, depth int)
	visit = func(fs []Fragment, depth int) {
		for _, f := range fs {
			fn(f, depth)
			visit(f.Children, depth+1)
		}
	}
	visit(r.Fragments, 0)
}

// Summary renders Stats as "decision=count" pairs in a stable order.
func (r *Result) Summary() string {
	stats := r.Stats()
	keys := make([]string, 0, len(stats))
	for d := range stats {
		keys = append(keys, string(d))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(stats[Decision(k)])
	}
	return strings.Join(parts, " ")
}
