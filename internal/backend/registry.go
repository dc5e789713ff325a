// Package backend provides the document parsers the merge engine runs on:
// plain text, Markdown, YAML, HTML and tree-sitter source code.
package backend

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dusk-indust/treemerge/internal/ast"
)

var (
	mu       sync.RWMutex
	byName   = map[string]ast.Parser{}
	byExt    = map[string]string{}
	initOnce sync.Once
)

func builtins() {
	for _, p := range []ast.Parser{
		NewText(),
		NewMarkdown(),
		NewYAML(),
		NewGoccyYAML(),
		NewHTML(),
		NewGo(),
		NewPython(),
		NewRust(),
		NewTypeScript(),
	} {
		if err := register(p); err != nil {
			panic(err)
		}
	}
}

func ensure() { initOnce.Do(builtins) }

// Register adds a parser under its format name and extensions. Registering
// a name or extension twice is an error.
func Register(p ast.Parser) error {
	ensure()
	return register(p)
}

func register(p ast.Parser) error {
	f := p.Format()
	if f.Name == "" {
		return fmt.Errorf("backend: format name is required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := byName[f.Name]; dup {
		return fmt.Errorf("backend: format %q already registered", f.Name)
	}
	for _, ext := range f.Extensions {
		if owner, dup := byExt[strings.ToLower(ext)]; dup {
			return fmt.Errorf("backend: extension %s already mapped to %q", ext, owner)
		}
	}
	byName[f.Name] = p
	for _, ext := range f.Extensions {
		byExt[strings.ToLower(ext)] = f.Name
	}
	return nil
}

// Lookup returns the parser registered as name.
func Lookup(name string) (ast.Parser, bool) {
	ensure()
	mu.RLock()
	defer mu.RUnlock()
	p, ok := byName[name]
	return p, ok
}

// ForPath returns the parser mapped to path's extension.
func ForPath(path string) (ast.Parser, bool) {
	ensure()
	ext := strings.ToLower(filepath.Ext(path))
	mu.RLock()
	defer mu.RUnlock()
	name, ok := byExt[ext]
	if !ok {
		return nil, false
	}
	return byName[name], true
}

// Resolve picks a parser by explicit name, falling back to path's extension.
func Resolve(name, path string) (ast.Parser, error) {
	if name != "" {
		if p, ok := Lookup(name); ok {
			return p, nil
		}
		return nil, fmt.Errorf("unknown format %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	if p, ok := ForPath(path); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no format registered for %q; pass a format explicitly", filepath.Base(path))
}

// Names lists registered format names, sorted.
func Names() []string {
	ensure()
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(byName))
	for n := range byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Formats lists registered formats sorted by name.
func Formats() []ast.Format {
	names := Names()
	mu.RLock()
	defer mu.RUnlock()
	out := make([]ast.Format, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n].Format())
	}
	return out
}
