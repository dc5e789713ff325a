// Package freeze finds freeze blocks: spans of a document delimited by
// "<token>:freeze [reason]" and "<token>:unfreeze" comment lines. A frozen
// span is treated by the merge engine as one opaque unit that is copied
// verbatim.
package freeze

import (
	"fmt"
	"sort"
	"sync"
)

// Style is a comment syntax in which freeze markers can be written. Line
// styles set Line; block styles set Open and Close.
type Style struct {
	Name  string `json:"name"`
	Line  string `json:"line,omitempty"`
	Open  string `json:"open,omitempty"`
	Close string `json:"close,omitempty"`
}

// IsBlock reports whether the style uses open/close delimiters.
func (s Style) IsBlock() bool { return s.Open != "" }

// Built-in style names.
const (
	StyleHash       = "hash"
	StyleCLine      = "c_line"
	StyleCBlock     = "c_block"
	StyleHTML       = "html"
	StyleSemicolon  = "semicolon"
	StyleDoubleDash = "double_dash"
)

var registry = struct {
	sync.RWMutex
	styles map[string]Style
}{styles: map[string]Style{
	StyleHash:       {Name: StyleHash, Line: "#"},
	StyleCLine:      {Name: StyleCLine, Line: "//"},
	StyleCBlock:     {Name: StyleCBlock, Open: "/*", Close: "*/"},
	StyleHTML:       {Name: StyleHTML, Open: "<!--", Close: "-->"},
	StyleSemicolon:  {Name: StyleSemicolon, Line: ";"},
	StyleDoubleDash: {Name: StyleDoubleDash, Line: "--"},
}}

// Register publishes a new comment style. Published styles are never
// replaced; registering an existing name is an error.
func Register(s Style) error {
	if s.Name == "" {
		return fmt.Errorf("freeze: style name is required")
	}
	if s.Line == "" && (s.Open == "" || s.Close == "") {
		return fmt.Errorf("freeze: style %q needs a line delimiter or both block delimiters", s.Name)
	}
	registry.Lock()
	defer registry.Unlock()
	if _, exists := registry.styles[s.Name]; exists {
		return fmt.Errorf("freeze: style %q already registered", s.Name)
	}
	registry.styles[s.Name] = s
	return nil
}

// Lookup returns the style registered under name.
func Lookup(name string) (Style, bool) {
	registry.RLock()
	defer registry.RUnlock()
	s, ok := registry.styles[name]
	return s, ok
}

// Resolve looks up every name, failing on the first unknown one.
func Resolve(names []string) ([]Style, error) {
	out := make([]Style, 0, len(names))
	for _, n := range names {
		s, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("freeze: unknown comment style %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Names lists registered style names in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.styles))
	for n := range registry.styles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
