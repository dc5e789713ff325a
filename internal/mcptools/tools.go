package mcptools

import (
	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/merge"
)

// --- MCP Tool Input Types ---
// The MCP Go SDK generates each tool's JSON schema from these struct tags.

// MergeDocumentsInput is the input for the merge_documents MCP tool.
type MergeDocumentsInput struct {
	Template    string `json:"template" jsonschema:"template document text"`
	Destination string `json:"destination" jsonschema:"destination document text; empty merges into a new document"`

	Format string `json:"format,omitempty" jsonschema:"backend name (see list_formats); inferred from path when empty"`
	Path   string `json:"path,omitempty" jsonschema:"destination file name, used only to infer the format and label the diff"`

	Preference      string            `json:"preference,omitempty" jsonschema:"side that wins on conflicts: template or destination (default: destination)"`
	PreferByKind    map[string]string `json:"preferByKind,omitempty" jsonschema:"per node kind overrides of preference"`
	AddTemplateOnly bool              `json:"addTemplateOnly,omitempty" jsonschema:"add template units missing from the destination"`
	FreezeToken     string            `json:"freezeToken,omitempty" jsonschema:"freeze marker token (default: the format's token)"`

	Diff bool `json:"diff,omitempty" jsonschema:"include a unified diff against the destination"`
}

// MergeDocumentsOutput is the result of the merge_documents MCP tool.
type MergeDocumentsOutput struct {
	MergeOutcome
}

// MatchInput selects anchor or boundary units.
type MatchInput struct {
	Kind            string `json:"kind,omitempty" jsonschema:"raw or canonical node kind, or node-typing tag"`
	Text            string `json:"text,omitempty" jsonschema:"regular expression matched against the unit's trimmed text"`
	MinDepth        int    `json:"minDepth,omitempty" jsonschema:"minimum tree depth (1 is top level)"`
	MaxDepth        int    `json:"maxDepth,omitempty" jsonschema:"maximum tree depth"`
	SameOrShallower bool   `json:"sameOrShallower,omitempty" jsonschema:"boundary only: stop at units no deeper than the anchor"`
}

// InjectSectionInput is the input for the inject_section MCP tool.
type InjectSectionInput struct {
	Fragment    string `json:"fragment" jsonschema:"template fragment to inject"`
	Destination string `json:"destination" jsonschema:"destination document text"`

	Format string `json:"format,omitempty" jsonschema:"backend name; inferred from path when empty"`
	Path   string `json:"path,omitempty" jsonschema:"destination file name, used to infer the format"`

	Anchor   MatchInput  `json:"anchor" jsonschema:"selects the anchor unit"`
	Boundary *MatchInput `json:"boundary,omitempty" jsonschema:"ends the replaced range (position replace only)"`

	Position    string `json:"position" jsonschema:"before, after, first_child, last_child or replace"`
	WhenMissing string `json:"whenMissing,omitempty" jsonschema:"skip, add or error when no anchor matches (default: skip)"`
	Mode        string `json:"mode,omitempty" jsonschema:"wholesale or merge (default: wholesale)"`

	Preference string `json:"preference,omitempty" jsonschema:"merge mode: template or destination"`
	Add        string `json:"add,omitempty" jsonschema:"merge mode: expression deciding which template-only nodes are added"`

	Diff bool `json:"diff,omitempty" jsonschema:"include a unified diff against the destination"`
}

// InjectSectionOutput is the result of the inject_section MCP tool.
type InjectSectionOutput struct {
	MergeOutcome
}

// MergeOutcome is shared by the merge and inject tools.
type MergeOutcome struct {
	Content     string            `json:"content"`
	Format      string            `json:"format"`
	Changed     bool              `json:"changed"`
	Summary     string            `json:"summary"`
	Stats       map[string]int    `json:"stats"`
	Ambiguities []merge.Ambiguity `json:"ambiguities,omitempty"`
	Diff        string            `json:"diff,omitempty"`
}

// ListFormatsInput is the input for the list_formats MCP tool.
type ListFormatsInput struct{}

// ListFormatsOutput is the result of the list_formats MCP tool.
type ListFormatsOutput struct {
	Formats []ast.Format `json:"formats"`
}
