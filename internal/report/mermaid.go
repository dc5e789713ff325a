package report

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/treemerge/internal/merge"
)

// Mermaid produces a Mermaid graph TD diagram of a merge result. Every
// non-synthetic fragment is a node styled by its decision; nested fragments
// hang off their container.
func Mermaid(res *merge.Result) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("  R[\"document\"]\n")

	nextID := 0
	used := make(map[merge.Decision]bool)
	var visit func(parent string, fs []merge.Fragment)
	visit = func(parent string, fs []merge.Fragment) {
		for _, f := range fs {
			if f.Synthetic {
				continue
			}
			id := fmt.Sprintf("N%d", nextID)
			nextID++
			used[f.Decision] = true
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]:::%s\n", id, mermaidLabel(f), f.Decision))
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", parent, id))
			visit(id, f.Children)
		}
	}
	visit("R", res.Fragments)

	for _, d := range merge.AllDecisions {
		if used[d] {
			sb.WriteString(fmt.Sprintf("  classDef %s %s\n", d, mermaidStyle(d)))
		}
	}
	return sb.String()
}

// mermaidLabel returns "decision: first line", quoted for a Mermaid node.
func mermaidLabel(f merge.Fragment) string {
	first, _, _ := strings.Cut(strings.TrimSpace(f.Content), "\n")
	if len(first) > 40 {
		first = first[:37] + "..."
	}
	first = strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;").Replace(first)
	if first == "" {
		return string(f.Decision)
	}
	return fmt.Sprintf("%s: %s", f.Decision, first)
}

func mermaidStyle(d merge.Decision) string {
	switch d {
	case merge.DecisionAdded, merge.DecisionAppended:
		return "fill:#d4f8d4"
	case merge.DecisionKeptTemplate, merge.DecisionReplaced:
		return "fill:#fff3c4"
	case merge.DecisionMerged, merge.DecisionRecursive:
		return "fill:#ecd9fb"
	case merge.DecisionFrozen:
		return "fill:#cdeffd,stroke-width:2px"
	default:
		return "fill:#eeeeee"
	}
}
