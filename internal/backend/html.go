package backend

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTML parses markup with the golang.org/x/net/html tokenizer into an
// element tree with line spans. Elements are keyed by tag name plus id, name
// or class; text is keyed by its content.
type HTML struct{}

// NewHTML returns the HTML parser.
func NewHTML() *HTML { return &HTML{} }

func (*HTML) Format() ast.Format {
	return ast.Format{
		Name:          "html",
		CommentStyles: []string{freeze.StyleHTML},
		FreezeToken:   "treemerge",
		Extensions:    []string{".html", ".htm", ".xhtml"},
	}
}

type htmlOpen struct {
	tag   string
	start int
	sig   []string
	kids  []ast.Node
}

func (*HTML) Parse(source string) ast.ParseResult {
	lines := splitSource(source)
	z := html.NewTokenizer(strings.NewReader(source))

	var (
		top    []ast.Node
		stack  []*htmlOpen
		issues []ast.Issue
		line   = 1
	)
	add := func(n ast.Node) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		stack[len(stack)-1].kids = append(stack[len(stack)-1].kids, n)
	}
	closeTop := func(end int) {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		add(element("element", lines, o.start, end, o.kids, o.sig))
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				issues = append(issues, ast.Issue{Line: line, Message: err.Error()})
			}
			break
		}
		raw := string(z.Raw())
		start := line
		end := line + strings.Count(raw, "\n")
		line = end

		switch tt {
		case html.TextToken:
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			idx := strings.Index(raw, trimmed)
			s := start + strings.Count(raw[:idx], "\n")
			e := s + strings.Count(trimmed, "\n")
			add(element("text", lines, s, e, nil, []string{"text", strings.Join(strings.Fields(trimmed), " ")}))

		case html.CommentToken:
			add(element("comment", lines, start, end, nil, nil))

		case html.DoctypeToken:
			add(element("doctype", lines, start, end, nil, []string{"doctype"}))

		case html.SelfClosingTagToken:
			_, sig := htmlTag(z)
			add(element("element", lines, start, end, nil, sig))

		case html.StartTagToken:
			name, sig := htmlTag(z)
			if voidElements[name] {
				add(element("element", lines, start, end, nil, sig))
				continue
			}
			stack = append(stack, &htmlOpen{tag: name, start: start, sig: sig})

		case html.EndTagToken:
			tn, _ := z.TagName()
			name := string(tn)
			at := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag == name {
					at = i
					break
				}
			}
			if at < 0 {
				issues = append(issues, ast.Issue{Line: start, Message: "unexpected closing tag </" + name + ">"})
				continue
			}
			for len(stack) > at+1 {
				closeTop(end)
			}
			closeTop(end)
		}
	}
	for len(stack) > 0 {
		closeTop(max(len(lines), 1))
	}
	if len(issues) > 0 {
		return ast.Failed(issues...)
	}
	return ast.ParseResult{Root: root("document", lines, top)}
}

// htmlTag reads the current tag's name and builds its signature.
func htmlTag(z *html.Tokenizer) (string, []string) {
	tn, hasAttr := z.TagName()
	name := string(tn)
	sig := []string{"element", name}
	var id, nm, class string
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		switch string(k) {
		case "id":
			id = string(v)
		case "name":
			nm = string(v)
		case "class":
			class = string(v)
		}
	}
	switch {
	case id != "":
		sig = append(sig, "#"+id)
	case nm != "":
		sig = append(sig, "@"+nm)
	case class != "":
		sig = append(sig, "."+strings.Join(strings.Fields(class), "."))
	}
	return name, sig
}
