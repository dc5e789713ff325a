package backend

import (
	"regexp"
	"strconv"
	"strings"

	yamlast "github.com/goccy/go-yaml/ast"
	yamlparser "github.com/goccy/go-yaml/parser"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

func init() {
	ast.RegisterKinds("yaml-goccy", map[string]string{
		"MappingValue":  KindYAMLPair,
		"SequenceEntry": KindYAMLItem,
		"Document":      KindYAMLDocument,
	})
}

var goccyErrPos = regexp.MustCompile(`\[(\d+):(\d+)\]`)

// GoccyYAML parses YAML with github.com/goccy/go-yaml. Its raw kinds map to
// the same canonical kinds as the yaml backend, so preferences written for
// one apply to the other.
type GoccyYAML struct{}

// NewGoccyYAML returns the goccy/go-yaml backed parser.
func NewGoccyYAML() *GoccyYAML { return &GoccyYAML{} }

func (*GoccyYAML) Format() ast.Format {
	return ast.Format{
		Name:          "yaml-goccy",
		CommentStyles: []string{freeze.StyleHash},
		FreezeToken:   "treemerge",
	}
}

func (*GoccyYAML) Parse(source string) ast.ParseResult {
	lines := splitSource(source)
	file, err := yamlparser.ParseBytes([]byte(source), yamlparser.ParseComments)
	if err != nil {
		is := ast.Issue{Message: err.Error()}
		if m := goccyErrPos.FindStringSubmatch(err.Error()); m != nil {
			is.Line, _ = strconv.Atoi(m[1])
			is.Column, _ = strconv.Atoi(m[2])
		}
		return ast.Failed(is)
	}

	b := goccyBuilder{lines: lines}
	var bodies []yamlast.Node
	for _, d := range file.Docs {
		if d != nil && d.Body != nil {
			bodies = append(bodies, d.Body)
		}
	}

	var kids []ast.Node
	switch len(bodies) {
	case 0:
	case 1:
		kids = b.children(bodies[0], len(lines))
	default:
		for i, body := range bodies {
			start := b.firstLine(body)
			next := len(lines) + 1
			if i+1 < len(bodies) {
				next = b.firstLine(bodies[i+1])
				for next-1 > start && strings.HasPrefix(lines[next-2], "---") {
					next--
				}
			}
			end := endBefore(lines, start, next, yamlComment)
			kids = append(kids, element("Document", lines, start, end, b.children(body, end), []string{"Document", strconv.Itoa(i)}))
		}
	}
	return ast.ParseResult{Root: root("File", lines, kids)}
}

type goccyBuilder struct {
	lines []string
}

// unwrap strips tags and anchors.
func unwrapGoccy(n yamlast.Node) yamlast.Node {
	for {
		switch v := n.(type) {
		case *yamlast.TagNode:
			n = v.Value
		case *yamlast.AnchorNode:
			n = v.Value
		default:
			return n
		}
	}
}

func tokenLine(n yamlast.Node) int {
	if n == nil {
		return 0
	}
	if tk := n.GetToken(); tk != nil && tk.Position != nil {
		return tk.Position.Line
	}
	return 0
}

func (b goccyBuilder) firstLine(n yamlast.Node) int {
	switch v := unwrapGoccy(n).(type) {
	case *yamlast.MappingNode:
		if len(v.Values) > 0 {
			return b.firstLine(v.Values[0])
		}
	case *yamlast.MappingValueNode:
		return tokenLine(v.Key)
	case *yamlast.SequenceNode:
		if len(v.Values) > 0 {
			return b.itemLine(v.Values[0])
		}
	}
	if l := tokenLine(n); l > 0 {
		return l
	}
	return 1
}

func (b goccyBuilder) itemLine(item yamlast.Node) int {
	line := b.firstLine(item)
	for line > 1 && line <= len(b.lines) && !strings.HasPrefix(strings.TrimSpace(b.lines[line-1]), "-") {
		line--
	}
	return line
}

func (b goccyBuilder) children(n yamlast.Node, end int) []ast.Node {
	var out []ast.Node
	switch v := unwrapGoccy(n).(type) {
	case *yamlast.MappingValueNode:
		out = append(out, b.pair(v, end+1))
	case *yamlast.MappingNode:
		if v.IsFlowStyle {
			return nil
		}
		for i, mv := range v.Values {
			next := end + 1
			if i+1 < len(v.Values) {
				next = b.firstLine(v.Values[i+1])
			}
			out = append(out, b.pair(mv, next))
		}
	case *yamlast.SequenceNode:
		if v.IsFlowStyle {
			return nil
		}
		for i, item := range v.Values {
			start := b.itemLine(item)
			next := end + 1
			if i+1 < len(v.Values) {
				next = b.itemLine(v.Values[i+1])
			}
			ie := endBefore(b.lines, start, next, yamlComment)
			out = append(out, element("SequenceEntry", b.lines, start, ie, b.children(item, ie), goccyItemSignature(item)))
		}
	}
	return out
}

func (b goccyBuilder) pair(mv *yamlast.MappingValueNode, next int) ast.Node {
	start := tokenLine(mv.Key)
	pe := endBefore(b.lines, start, next, yamlComment)
	var kids []ast.Node
	switch unwrapGoccy(mv.Value).(type) {
	case *yamlast.MappingNode, *yamlast.SequenceNode, *yamlast.MappingValueNode:
		if b.firstLine(mv.Value) > start {
			kids = b.children(mv.Value, pe)
		}
	}
	return element("MappingValue", b.lines, start, pe, kids, []string{"MappingValue", keyText(mv)})
}

func keyText(mv *yamlast.MappingValueNode) string {
	if tk := mv.Key.GetToken(); tk != nil {
		return tk.Value
	}
	return strings.TrimSpace(mv.Key.String())
}

func goccyItemSignature(item yamlast.Node) []string {
	switch v := unwrapGoccy(item).(type) {
	case yamlast.ScalarNode:
		if tk := v.GetToken(); tk != nil {
			return []string{"SequenceEntry", tk.Value}
		}
	case *yamlast.MappingNode:
		if len(v.Values) > 0 {
			return goccyItemSignature(v.Values[0])
		}
	case *yamlast.MappingValueNode:
		if s, ok := unwrapGoccy(v.Value).(yamlast.ScalarNode); ok {
			if tk := s.GetToken(); tk != nil {
				return []string{"SequenceEntry", keyText(v) + ": " + tk.Value}
			}
		}
		return []string{"SequenceEntry", keyText(v)}
	}
	return nil
}
