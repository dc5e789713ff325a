package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut}
	err = a.run(context.Background(), args)
	return out.String(), errOut.String(), err
}

func put(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestRun_VersionAndUsage(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	_, errOut, err := runCLI(t)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, errOut, "usage: treemerge")

	_, _, err = runCLI(t, "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestMerge_WritesDestination(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "tmpl.txt", "a\nb\nc\n")
	dest := put(t, dir, "dest.txt", "a\nx\nc\n")

	out, _, err := runCLI(t, "merge", "-config", dir, "-add", tmpl, dest)
	require.NoError(t, err)
	assert.Equal(t, dest+": identical=2 kept_destination=1 added=1\n", out)
	assert.Equal(t, "a\nb\nx\nc\n", readFile(t, dest))
}

func TestMerge_StdoutAndDryRun(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "tmpl.txt", "a\nb\n")
	dest := put(t, dir, "dest.txt", "a\n")

	out, _, err := runCLI(t, "merge", "-config", dir, "-add", "-o", "-", tmpl, dest)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
	assert.Equal(t, "a\n", readFile(t, dest))

	out, _, err = runCLI(t, "merge", "-config", dir, "-add", "-dry-run", "-diff", tmpl, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "@@ -1,1 +1,2 @@\n a\n+b\n")
	assert.Equal(t, "a\n", readFile(t, dest))
}

func TestMerge_UsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	put(t, dir, "treemerge.yml", "addTemplateOnly: true\nformats:\n  .tmpl: text\n")
	tmpl := put(t, dir, "t.tmpl", "a\nb\n")
	out := filepath.Join(dir, "out", "d.tmpl")

	_, _, err := runCLI(t, "merge", "-config", dir, "-o", out, tmpl, filepath.Join(dir, "missing.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", readFile(t, out))
}

func TestMerge_Check(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "tmpl.txt", "a\nb\n")
	dest := put(t, dir, "dest.txt", "a\n")

	_, _, err := runCLI(t, "merge", "-config", dir, "-add", "-check", tmpl, dest)
	assert.True(t, isCheckFailure(err))
	assert.Equal(t, "a\n", readFile(t, dest))

	_, _, err = runCLI(t, "merge", "-config", dir, "-check", tmpl, dest)
	assert.NoError(t, err, "nothing to add without -add")
}

func TestMerge_JSONReport(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "t.yml", "name: app\nport: 8080\n")
	dest := put(t, dir, "d.yml", "name: mine\n")

	out, _, err := runCLI(t, "merge", "-config", dir, "-add", "-dry-run", "-json", tmpl, dest)
	require.NoError(t, err)

	var exp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &exp))
	assert.Equal(t, "yaml", exp["format"])
	assert.Equal(t, true, exp["changed"])
}

func TestMerge_Patch(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "t.yml", "name: app\nport: 8080\n")
	dest := put(t, dir, "d.yml", "name: mine\n")

	out, _, err := runCLI(t, "merge", "-config", dir, "-add", "-dry-run", "-patch", tmpl, dest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"port":8080}`, out)
}

func TestMerge_Errors(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "t.txt", "a\n")

	_, _, err := runCLI(t, "merge", "-config", dir, tmpl)
	assert.ErrorContains(t, err, "needs a template and a destination")

	_, _, err = runCLI(t, "merge", "-config", dir, tmpl, filepath.Join(dir, "d.unknown"))
	assert.ErrorContains(t, err, "no format registered")

	_, _, err = runCLI(t, "merge", "-config", dir, "-prefer", "both", tmpl, filepath.Join(dir, "d.txt"))
	assert.ErrorContains(t, err, "invalid option preference")

	_, _, err = runCLI(t, "merge", "-config", dir, "-prefer-kind", "nokind", tmpl, filepath.Join(dir, "d.txt"))
	assert.ErrorContains(t, err, "want kind=side")
}

func TestInject_Recipe(t *testing.T) {
	dir := t.TempDir()
	recipe := put(t, dir, "recipe.yml", `format: markdown
fragment: |
  ## Install

  New steps.
anchor: {kind: section, text: "^## Install"}
boundary: {kind: section, sameOrShallower: true}
position: replace
`)
	dest := put(t, dir, "README.md", "# P\n\n## Install\n\nOld.\n\n## Usage\n\nUse.\n")

	out, _, err := runCLI(t, "inject", "-config", dir, "-recipe", recipe, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "replaced=1")
	assert.Equal(t, "# P\n\n## Install\n\nNew steps.\n\n## Usage\n\nUse.\n", readFile(t, dest))

	_, _, err = runCLI(t, "inject", "-config", dir, dest)
	assert.ErrorContains(t, err, "needs -recipe")
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	put(t, dir, "tmpl/a.txt", "a\nb\n")
	put(t, dir, "tmpl/b.txt", "x\n")
	put(t, dir, "a.txt", "a\n")
	put(t, dir, "b.txt", "x\n")
	put(t, dir, "treemerge.yml", `addTemplateOnly: true
pairs:
  - {template: tmpl/a.txt, destination: a.txt}
  - {template: tmpl/b.txt, destination: b.txt}
`)

	out, errOut, err := runCLI(t, "batch", "-config", dir, "-check")
	assert.True(t, isCheckFailure(err))
	assert.Contains(t, out, "a.txt: identical=1 added=1")
	assert.Contains(t, errOut, "b.txt unchanged")
	assert.Equal(t, "a\n", readFile(t, filepath.Join(dir, "a.txt")))

	_, _, err = runCLI(t, "batch", "-config", dir, "-quiet")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", readFile(t, filepath.Join(dir, "a.txt")))

	_, _, err = runCLI(t, "batch", "-config", t.TempDir())
	assert.ErrorContains(t, err, "no pairs configured")
}

func TestFormats(t *testing.T) {
	out, _, err := runCLI(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "FORMAT")
	assert.Contains(t, out, "markdown")
	assert.Contains(t, out, ".md")

	out, _, err = runCLI(t, "formats", "-json")
	require.NoError(t, err)
	var formats []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &formats))
	assert.NotEmpty(t, formats)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	put(t, dir, ".mcp.json", `{"inputs":[1],"mcpServers":{"other":{"command":"x"}}}`)

	out, _, err := runCLI(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "created ./treemerge.yml")
	assert.Contains(t, out, "created ./recipes/example.yml")
	assert.Contains(t, out, "updated .mcp.json")

	var cfg mcpConfig
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(dir, ".mcp.json"))), &cfg))
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Contains(t, cfg.MCPServers, "treemerge")
	assert.JSONEq(t, `{"type":"stdio","command":"treemerge","args":["serve-mcp"]}`, string(cfg.MCPServers["treemerge"]))

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(dir, ".mcp.json"))), &raw))
	assert.Equal(t, []any{float64(1)}, raw["inputs"], "keys outside mcpServers survive")

	out, _, err = runCLI(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped ./treemerge.yml")
	assert.Contains(t, out, "skipped .mcp.json treemerge entry")

	fresh := t.TempDir()
	out, _, err = runCLI(t, "init", fresh)
	require.NoError(t, err)
	assert.Contains(t, out, "created .mcp.json with treemerge MCP server")

	broken := t.TempDir()
	put(t, broken, ".mcp.json", "{not json")
	_, _, err = runCLI(t, "init", broken)
	assert.ErrorContains(t, err, "parse")
}

func TestMerge_Mermaid(t *testing.T) {
	dir := t.TempDir()
	tmpl := put(t, dir, "t.txt", "a\nb\n")
	dest := put(t, dir, "d.txt", "a\n")

	out, _, err := runCLI(t, "merge", "-config", dir, "-add", "-dry-run", "-mermaid", tmpl, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, `N1["added: b"]:::added`)
}
