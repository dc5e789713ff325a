package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treemerge/internal/merge"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports and returns the connected client session.
func setupServerClient(t *testing.T, opts merge.Options) *mcp.ClientSession {
	t.Helper()

	server := NewMCPServer(NewMergeService(opts, nil, nil))
	st, ct := mcp.NewInMemoryTransports()

	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session
}

// callTool invokes a tool and decodes its structured output into out. It
// returns the raw result so callers can inspect IsError.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args, out any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	if out != nil && !result.IsError {
		require.NotNil(t, result.StructuredContent, "expected structured content from %s", name)
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return result
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"inject_section", "list_formats", "merge_documents"}, names)
}

func TestMCPMergeDocuments(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	var out MergeDocumentsOutput
	result := callTool(t, session, "merge_documents", MergeDocumentsInput{
		Template:        "a\nb\nc\n",
		Destination:     "a\nx\nc\n",
		Path:            "notes.txt",
		AddTemplateOnly: true,
		Diff:            true,
	}, &out)
	require.False(t, result.IsError, "merge_documents should succeed")

	assert.Equal(t, "a\nb\nx\nc\n", out.Content)
	assert.Equal(t, "text", out.Format)
	assert.True(t, out.Changed)
	assert.Equal(t, map[string]int{"identical": 2, "kept_destination": 1, "added": 1}, out.Stats)
	assert.Equal(t, "added=1 identical=2 kept_destination=1", out.Summary)
	assert.Contains(t, out.Diff, "--- a/notes.txt\n+++ b/notes.txt\n")
	assert.Contains(t, out.Diff, "+b\n")
}

func TestMCPMergeDocuments_ServiceDefaults(t *testing.T) {
	session := setupServerClient(t, merge.Options{AddTemplateOnly: true})

	var out MergeDocumentsOutput
	result := callTool(t, session, "merge_documents", MergeDocumentsInput{
		Template:    "a\nb\n",
		Destination: "a\n",
		Format:      "text",
	}, &out)
	require.False(t, result.IsError)
	assert.Equal(t, "a\nb\n", out.Content)
	assert.Empty(t, out.Diff, "diff only on request")
}

func TestMCPMergeDocuments_Errors(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	cases := map[string]MergeDocumentsInput{
		"no format":      {Template: "a\n", Destination: "a\n"},
		"unknown format": {Template: "a\n", Destination: "a\n", Format: "cobol"},
		"bad preference": {Template: "a\n", Destination: "a\n", Format: "text", Preference: "both"},
		"parse failure":  {Template: "a: 1\n", Destination: "a: [\n", Format: "yaml"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			result := callTool(t, session, "merge_documents", in, nil)
			assert.True(t, result.IsError)
		})
	}
}

func TestMCPInjectSection(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	dest := "# Project\n\nIntro.\n\n## Install\n\nOld steps.\n\n### Notes\n\nNote.\n\n## Usage\n\nUse it.\n"
	var out InjectSectionOutput
	result := callTool(t, session, "inject_section", InjectSectionInput{
		Fragment:    "## Install\n\nNew steps.\n",
		Destination: dest,
		Path:        "README.md",
		Anchor:      MatchInput{Kind: "section", Text: "^## Install"},
		Boundary:    &MatchInput{Kind: "section", SameOrShallower: true},
		Position:    "replace",
	}, &out)
	require.False(t, result.IsError, "inject_section should succeed")

	assert.Equal(t, "# Project\n\nIntro.\n\n## Install\n\nNew steps.\n\n## Usage\n\nUse it.\n", out.Content)
	assert.Equal(t, "markdown", out.Format)
	assert.Equal(t, 1, out.Stats["replaced"])
}

func TestMCPInjectSection_MissingAnchor(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	in := InjectSectionInput{
		Fragment:    "x\n",
		Destination: "# A\n",
		Format:      "markdown",
		Anchor:      MatchInput{Kind: "section", Text: "^## Nope"},
		Position:    "after",
	}

	var out InjectSectionOutput
	result := callTool(t, session, "inject_section", in, &out)
	require.False(t, result.IsError)
	assert.False(t, out.Changed, "skip leaves the destination alone")
	assert.Equal(t, "# A\n", out.Content)

	in.WhenMissing = "error"
	result = callTool(t, session, "inject_section", in, nil)
	assert.True(t, result.IsError)

	in.WhenMissing = ""
	in.Position = "sideways"
	result = callTool(t, session, "inject_section", in, nil)
	assert.True(t, result.IsError)
}

func TestMCPListFormats(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	var out ListFormatsOutput
	result := callTool(t, session, "list_formats", map[string]any{}, &out)
	require.False(t, result.IsError)

	names := make([]string, len(out.Formats))
	for i, f := range out.Formats {
		names[i] = f.Name
	}
	assert.Contains(t, names, "markdown")
	assert.Contains(t, names, "go")
	assert.Contains(t, names, "yaml-goccy")
	assert.True(t, sort.StringsAreSorted(names))
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool returns an
// error.
func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t, merge.Options{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The SDK may report unknown tools at the protocol level or set IsError.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
