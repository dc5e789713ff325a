package merge

import (
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// indentParser builds a tree from indentation: a line indented deeper than
// the previous one is its child. Lines with children have kind "block", the
// rest "line". A line starting with "!" is a parse error.
type indentParser struct{}

func (indentParser) Format() ast.Format {
	return ast.Format{Name: "indent", CommentStyles: []string{freeze.StyleHash}, FreezeToken: "tm"}
}

func (indentParser) Parse(src string) ast.ParseResult {
	var lines []string
	if src != "" {
		lines = strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	}
	type frame struct {
		indent int
		el     *ast.Element
	}
	root := &ast.Element{NodeKind: "root"}
	stack := []frame{{indent: -1, el: root}}
	var issues []ast.Issue
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "!") {
			issues = append(issues, ast.Issue{Line: i + 1, Message: "bang"})
			continue
		}
		ind := len(l) - len(strings.TrimLeft(l, " "))
		for stack[len(stack)-1].indent >= ind {
			stack = stack[:len(stack)-1]
		}
		el := &ast.Element{
			NodeKind: "line",
			Content:  trimmed,
			Lines:    ast.Span{StartLine: i + 1, EndLine: i + 1},
			HasLines: true,
		}
		parent := stack[len(stack)-1].el
		parent.Kids = append(parent.Kids, el)
		stack = append(stack, frame{indent: ind, el: el})
	}
	if len(issues) > 0 {
		return ast.Failed(issues...)
	}
	var fix func(e *ast.Element)
	fix = func(e *ast.Element) {
		for _, k := range e.Kids {
			c := k.(*ast.Element)
			fix(c)
			if c.Lines.EndLine > e.Lines.EndLine {
				e.Lines.EndLine = c.Lines.EndLine
			}
		}
		if len(e.Kids) > 0 && e.NodeKind == "line" {
			e.NodeKind = "block"
		}
	}
	for _, k := range root.Kids {
		fix(k.(*ast.Element))
	}
	return ast.ParseResult{Root: root}
}

// byKey signs "key: value" lines by kind and key.
func byKey(n ast.Node) Signature {
	if k, _, ok := strings.Cut(n.Text(), ":"); ok {
		return NewSignature(n.Kind(), strings.TrimSpace(k))
	}
	return DefaultSignature
}

func mustEngine(p ast.Parser, opts Options) *Engine {
	e, err := New(p, opts)
	if err != nil {
		panic(err)
	}
	return e
}
