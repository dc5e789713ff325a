package ast

import (
	"fmt"
	"strings"
)

// Format describes a document format handled by a parser backend.
type Format struct {
	// Name is the backend identifier (e.g. "yaml", "go", "markdown").
	Name string `json:"name"`

	// CommentStyles names the comment styles in which freeze markers may be
	// written for this format (see package freeze).
	CommentStyles []string `json:"commentStyles"`

	// FreezeToken is the default marker token, as in "<token>:freeze".
	FreezeToken string `json:"freezeToken"`

	// Extensions lists file extensions (with leading dot) mapped to this format.
	Extensions []string `json:"extensions,omitempty"`
}

// Issue is a single problem reported by a parser.
type Issue struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// ParseResult is the outcome of a parse. A result with Issues is invalid and
// Root must not be used; parsers collect every issue they find rather than
// stopping at the first.
type ParseResult struct {
	Root   Node
	Issues []Issue
}

// Valid reports whether the parse produced a usable tree.
func (r ParseResult) Valid() bool {
	return r.Root != nil && len(r.Issues) == 0
}

// Failed returns an invalid ParseResult carrying the given issues.
func Failed(issues ...Issue) ParseResult {
	return ParseResult{Issues: issues}
}

// Parser turns source text into a Node tree.
type Parser interface {
	Format() Format
	Parse(source string) ParseResult
}

// IssueList formats issues one per line.
func IssueList(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}
