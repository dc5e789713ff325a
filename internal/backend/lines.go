package backend

import (
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// splitSource splits source into lines without the final newline.
func splitSource(source string) []string {
	if source == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(source, "\n"), "\n")
}

func blank(line string) bool { return strings.TrimSpace(line) == "" }

func span(start, end int) ast.Span { return ast.Span{StartLine: start, EndLine: end} }

// element builds a spanned node over lines[start-1:end].
func element(kind string, lines []string, start, end int, kids []ast.Node, sig []string) *ast.Element {
	return &ast.Element{
		NodeKind: kind,
		Content:  strings.Join(lines[start-1:end], "\n"),
		Kids:     kids,
		Lines:    span(start, end),
		HasLines: true,
		Sig:      sig,
	}
}

func root(kind string, lines []string, kids []ast.Node) *ast.Element {
	r := &ast.Element{NodeKind: kind, Content: strings.Join(lines, "\n"), Kids: kids}
	if len(lines) > 0 {
		r.Lines, r.HasLines = span(1, len(lines)), true
	}
	return r
}

// endBefore returns the last line before next that is neither blank nor a
// comment, never less than start.
func endBefore(lines []string, start, next int, comment func(string) bool) int {
	end := next - 1
	for end > start {
		l := lines[end-1]
		if !blank(l) && (comment == nil || !comment(l)) {
			break
		}
		end--
	}
	return end
}

// Text parses plain text: every non-blank line is one node.
type Text struct{}

// NewText returns the plain-text parser.
func NewText() *Text { return &Text{} }

func (*Text) Format() ast.Format {
	return ast.Format{
		Name:          "text",
		CommentStyles: []string{freeze.StyleHash},
		FreezeToken:   "treemerge",
		Extensions:    []string{".txt"},
	}
}

func (*Text) Parse(source string) ast.ParseResult {
	lines := splitSource(source)
	var kids []ast.Node
	for i, l := range lines {
		if blank(l) {
			continue
		}
		kids = append(kids, element("line", lines, i+1, i+1, nil, nil))
	}
	return ast.ParseResult{Root: root("document", lines, kids)}
}
