package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/dusk-indust/treemerge/internal/starter"
)

const mcpServerName = "treemerge"

// mcpConfig is the part of .mcp.json that init reads and patches.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// treemergeMCPEntry is the MCP server configuration for the treemerge binary.
var treemergeMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "treemerge",
  "args": ["serve-mcp"]
}`)

// runInit writes the starter config and example recipe into the project
// directory and registers the MCP server in .mcp.json.
func (a *app) runInit(args []string) error {
	flags, verbose := a.flagSet("init", "[PROJECT_ROOT]")
	force := flags.Bool("force", false, "overwrite existing files")
	noMCP := flags.Bool("no-mcp", false, "do not touch .mcp.json")
	if err := flags.Parse(args); err != nil {
		return err
	}
	a.setupLogger(*verbose)

	projectRoot := "."
	if flags.NArg() > 0 {
		projectRoot = flags.Arg(0)
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	err = fs.WalkDir(starter.FS, starter.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(starter.Root, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(abs, rel)

		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		if !*force {
			if _, err := os.Stat(dest); err == nil {
				fmt.Fprintf(a.stdout, "  skipped %s (exists, use -force to overwrite)\n", dotRelative(abs, dest))
				return nil
			}
		}

		data, err := starter.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", path, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		fmt.Fprintf(a.stdout, "  created %s\n", dotRelative(abs, dest))
		return nil
	})
	if err != nil {
		return fmt.Errorf("copying starter files: %w", err)
	}

	if !*noMCP {
		if err := a.registerMCPServer(filepath.Join(abs, ".mcp.json"), *force); err != nil {
			return err
		}
	}
	return nil
}

// registerMCPServer applies a JSON merge patch adding the treemerge server
// to .mcp.json. Keys the patch does not name are left as they were.
func (a *app) registerMCPServer(path string, force bool) error {
	original, err := os.ReadFile(path)
	existed := err == nil
	switch {
	case errors.Is(err, fs.ErrNotExist):
		original = []byte("{}")
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	}

	var current mcpConfig
	if err := json.Unmarshal(original, &current); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if _, ok := current.MCPServers[mcpServerName]; ok && !force {
		fmt.Fprintf(a.stdout, "  skipped .mcp.json %s entry (exists, use -force to overwrite)\n", mcpServerName)
		return nil
	}

	patch, err := json.Marshal(mcpConfig{MCPServers: map[string]json.RawMessage{mcpServerName: treemergeMCPEntry}})
	if err != nil {
		return fmt.Errorf("encode %s entry: %w", mcpServerName, err)
	}
	patched, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return fmt.Errorf("patch %s: %w", path, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, patched, "", "  "); err != nil {
		return fmt.Errorf("format %s: %w", path, err)
	}
	out.WriteByte('\n')
	if err := writeFile(path, path, out.String()); err != nil {
		return err
	}

	a.log.Debug("registered MCP server", "path", path, "name", mcpServerName)
	action := "created"
	if existed {
		action = "updated"
	}
	fmt.Fprintf(a.stdout, "  %s .mcp.json with %s MCP server\n", action, mcpServerName)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
