package backend

import (
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// Canonical YAML kinds shared by the yaml and yaml-goccy backends.
const (
	KindYAMLPair     = "pair"
	KindYAMLItem     = "item"
	KindYAMLDocument = "document"
)

func init() {
	ast.RegisterKinds("yaml", map[string]string{
		"mapping_pair":  KindYAMLPair,
		"sequence_item": KindYAMLItem,
		"yaml_document": KindYAMLDocument,
	})
}

func yamlComment(l string) bool { return strings.HasPrefix(strings.TrimSpace(l), "#") }

var yamlErrLine = regexp.MustCompile(`line (\d+)`)

// YAML parses YAML with gopkg.in/yaml.v3. Mapping pairs are keyed by their
// key, sequence items by their scalar value or first pair.
type YAML struct{}

// NewYAML returns the yaml.v3 backed parser.
func NewYAML() *YAML { return &YAML{} }

func (*YAML) Format() ast.Format {
	return ast.Format{
		Name:          "yaml",
		CommentStyles: []string{freeze.StyleHash},
		FreezeToken:   "treemerge",
		Extensions:    []string{".yml", ".yaml"},
	}
}

func (*YAML) Parse(source string) ast.ParseResult {
	lines := splitSource(source)
	dec := yaml.NewDecoder(strings.NewReader(source))
	var docs []*yaml.Node
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ast.Failed(yamlIssue(err))
		}
		docs = append(docs, &doc)
	}

	b := yamlBuilder{lines: lines}
	var kids []ast.Node
	switch len(docs) {
	case 0:
	case 1:
		if body := docBody(docs[0]); body != nil {
			kids = b.children(body, len(lines))
		}
	default:
		for i, d := range docs {
			body := docBody(d)
			if body == nil {
				continue
			}
			start := body.Line
			next := len(lines) + 1
			if i+1 < len(docs) {
				if nb := docBody(docs[i+1]); nb != nil {
					next = nb.Line
				}
				// the separator line belongs to the gap
				for next-1 > start && strings.HasPrefix(lines[next-2], "---") {
					next--
				}
			}
			end := endBefore(lines, start, next, yamlComment)
			kids = append(kids, element("yaml_document", lines, start, end, b.children(body, end), []string{"yaml_document", strconv.Itoa(i)}))
		}
	}
	return ast.ParseResult{Root: root("stream", lines, kids)}
}

func yamlIssue(err error) ast.Issue {
	is := ast.Issue{Message: strings.TrimPrefix(err.Error(), "yaml: ")}
	if m := yamlErrLine.FindStringSubmatch(err.Error()); m != nil {
		is.Line, _ = strconv.Atoi(m[1])
	}
	return is
}

func docBody(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	return doc
}

type yamlBuilder struct {
	lines []string
}

func isBlock(n *yaml.Node) bool {
	return (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) && n.Style&yaml.FlowStyle == 0
}

// children builds the nodes for a block collection whose last line is end.
func (b yamlBuilder) children(n *yaml.Node, end int) []ast.Node {
	if !isBlock(n) {
		return nil
	}
	var out []ast.Node
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			next := end + 1
			if i+2 < len(n.Content) {
				next = n.Content[i+2].Line
			}
			pe := endBefore(b.lines, k.Line, next, yamlComment)
			out = append(out, element("mapping_pair", b.lines, k.Line, pe, b.children(v, pe), []string{"mapping_pair", k.Value}))
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			start := b.itemLine(item)
			next := end + 1
			if i+1 < len(n.Content) {
				next = b.itemLine(n.Content[i+1])
			}
			ie := endBefore(b.lines, start, next, yamlComment)
			out = append(out, element("sequence_item", b.lines, start, ie, b.children(item, ie), itemSignature("sequence_item", item)))
		}
	}
	return out
}

// itemLine finds the line of the "-" introducing item.
func (b yamlBuilder) itemLine(item *yaml.Node) int {
	line := item.Line
	for line > 1 && !strings.HasPrefix(strings.TrimSpace(b.lines[line-1]), "-") {
		line--
	}
	return line
}

func itemSignature(kind string, item *yaml.Node) []string {
	switch item.Kind {
	case yaml.ScalarNode:
		return []string{kind, item.Value}
	case yaml.MappingNode:
		if len(item.Content) >= 2 {
			k, v := item.Content[0], item.Content[1]
			if v.Kind == yaml.ScalarNode {
				return []string{kind, k.Value + ": " + v.Value}
			}
			return []string{kind, k.Value}
		}
	}
	return nil
}
