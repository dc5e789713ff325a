package backend

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/treemerge/internal/ast"
)

// grammar describes how one tree-sitter language maps onto merge nodes.
type grammar struct {
	format   ast.Format
	language *tree_sitter.Language

	// body returns the node whose named children become a declaration's
	// children, or nil for leaves.
	body func(n *tree_sitter.Node) *tree_sitter.Node

	// signature returns the identity parts of a node, or nil to fall back to
	// kind plus text.
	signature func(n *tree_sitter.Node, source []byte) []string
}

// TreeSitter parses source code with a tree-sitter grammar. Top-level
// declarations are the document's children; bodies of functions, types,
// classes and impls are their children. A new tree-sitter parser is created
// per Parse call, so a TreeSitter value is safe for concurrent use.
type TreeSitter struct {
	g grammar
}

func (p *TreeSitter) Format() ast.Format { return p.g.format }

func (p *TreeSitter) Parse(source string) ast.ParseResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.g.language); err != nil {
		return ast.Failed(ast.Issue{Message: fmt.Sprintf("set language %s: %v", p.g.format.Name, err)})
	}

	src := []byte(source)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return ast.Failed(ast.Issue{Message: "tree-sitter returned nil tree"})
	}
	defer tree.Close()

	top := tree.RootNode()
	if top.HasError() {
		return ast.Failed(syntaxIssues(top, src)...)
	}

	lines := splitSource(source)
	return ast.ParseResult{Root: root(top.Kind(), lines, p.convertChildren(top, src))}
}

func (p *TreeSitter) convertChildren(n *tree_sitter.Node, src []byte) []ast.Node {
	var out []ast.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		out = append(out, p.convert(c, src))
	}
	return out
}

func (p *TreeSitter) convert(n *tree_sitter.Node, src []byte) ast.Node {
	var kids []ast.Node
	if body := p.g.body(n); body != nil {
		kids = p.convertChildren(body, src)
	}
	var sig []string
	if p.g.signature != nil {
		sig = p.g.signature(n, src)
	}
	start, end := nodeLines(n)
	return &ast.Element{
		NodeKind: n.Kind(),
		Content:  n.Utf8Text(src),
		Kids:     kids,
		Lines:    span(start, end),
		HasLines: true,
		Sig:      sig,
	}
}

// nodeLines returns the 1-based line range of n. A node ending at column 0
// ends on the previous line.
func nodeLines(n *tree_sitter.Node) (int, int) {
	start := int(n.StartPosition().Row) + 1
	endPos := n.EndPosition()
	end := int(endPos.Row) + 1
	if endPos.Column == 0 && end > start {
		end--
	}
	return start, end
}

func syntaxIssues(n *tree_sitter.Node, src []byte) []ast.Issue {
	var issues []ast.Issue
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		switch {
		case n.IsMissing():
			issues = append(issues, ast.Issue{
				Line:    int(n.StartPosition().Row) + 1,
				Column:  int(n.StartPosition().Column) + 1,
				Message: "missing " + n.Kind(),
			})
			return
		case n.IsError():
			text := strings.TrimSpace(n.Utf8Text(src))
			if len(text) > 40 {
				text = text[:40] + "..."
			}
			issues = append(issues, ast.Issue{
				Line:    int(n.StartPosition().Row) + 1,
				Column:  int(n.StartPosition().Column) + 1,
				Message: fmt.Sprintf("syntax error near %q", text),
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(n)
	if len(issues) == 0 {
		issues = append(issues, ast.Issue{Message: "syntax error"})
	}
	return issues
}

// field returns the text of n's field child, or "".
func field(n *tree_sitter.Node, name string, src []byte) string {
	c := n.ChildByFieldName(name)
	if c == nil {
		return ""
	}
	return c.Utf8Text(src)
}

// named returns [kind, name] when n has a name field.
func named(n *tree_sitter.Node, src []byte) []string {
	if name := field(n, "name", src); name != "" {
		return []string{n.Kind(), name}
	}
	return nil
}

// fieldBody returns n's "body" field.
func fieldBody(n *tree_sitter.Node) *tree_sitter.Node {
	return n.ChildByFieldName("body")
}

// firstNamed returns the first named child of n with one of kinds.
func firstNamed(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

// squash collapses whitespace so signatures ignore formatting.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
