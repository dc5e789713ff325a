// Package report renders merge results for people and tools: a colored
// decision summary, a unified diff, a JSON merge patch and a JSON export.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dusk-indust/treemerge/internal/merge"
)

// MergeExport is the top-level JSON export structure for one merge.
type MergeExport struct {
	Template    string                `json:"template,omitempty"`
	Destination string                `json:"destination"`
	Format      string                `json:"format"`
	ExportedAt  string                `json:"exportedAt"`
	Changed     bool                  `json:"changed"`
	Stats       map[string]int        `json:"stats"`
	Summary     string                `json:"summary"`
	Fragments   []merge.Fragment      `json:"fragments"`
	Regions     []merge.RegionOutcome `json:"regions,omitempty"`
	Ambiguities []merge.Ambiguity     `json:"ambiguities,omitempty"`
	Content     string                `json:"content,omitempty"`
}

// ExportOptions selects optional parts of an export.
type ExportOptions struct {
	Template    string
	Destination string
	Format      string

	// Before is the destination text the merge started from.
	Before string

	// IncludeContent adds the merged text.
	IncludeContent bool

	// Now overrides the export timestamp.
	Now func() time.Time
}

// Export builds a MergeExport from a result.
func Export(res *merge.Result, opts ExportOptions) *MergeExport {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stats := make(map[string]int)
	for d, n := range res.Stats() {
		stats[string(d)] = n
	}
	content := res.Content()
	out := &MergeExport{
		Template:    opts.Template,
		Destination: opts.Destination,
		Format:      opts.Format,
		ExportedAt:  now().UTC().Format(time.RFC3339),
		Changed:     content != opts.Before,
		Stats:       stats,
		Summary:     res.Summary(),
		Fragments:   res.Fragments,
		Regions:     res.Regions,
		Ambiguities: res.Ambiguities,
	}
	if opts.IncludeContent {
		out.Content = content
	}
	return out
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
