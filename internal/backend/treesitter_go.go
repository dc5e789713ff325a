package backend

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

func init() {
	ast.RegisterKinds("go", map[string]string{
		"function_declaration": "function",
		"method_declaration":   "method",
		"type_declaration":     "type",
		"import_declaration":   "import",
		"comment":              "comment",
	})
}

// NewGo returns the Go source parser.
func NewGo() *TreeSitter {
	return &TreeSitter{g: grammar{
		format: ast.Format{
			Name:          "go",
			CommentStyles: []string{freeze.StyleCLine, freeze.StyleCBlock},
			FreezeToken:   "treemerge",
			Extensions:    []string{".go"},
		},
		language:  tree_sitter.NewLanguage(tree_sitter_go.Language()),
		body:      goBody,
		signature: goSignature,
	}}
}

func goBody(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "function_declaration", "method_declaration", "func_literal":
		b := fieldBody(n)
		if b == nil {
			return nil
		}
		if sl := firstNamed(b, "statement_list"); sl != nil {
			return sl
		}
		return b
	case "type_declaration":
		spec := firstNamed(n, "type_spec")
		if spec == nil {
			return nil
		}
		t := spec.ChildByFieldName("type")
		if t == nil {
			return nil
		}
		switch t.Kind() {
		case "struct_type":
			return firstNamed(t, "field_declaration_list")
		case "interface_type":
			return t
		}
	case "import_declaration":
		return firstNamed(n, "import_spec_list")
	case "const_declaration", "var_declaration":
		if n.NamedChildCount() > 1 {
			return n
		}
		if vl := firstNamed(n, "var_spec_list"); vl != nil {
			return vl
		}
	}
	return nil
}

func goSignature(n *tree_sitter.Node, src []byte) []string {
	switch n.Kind() {
	case "package_clause", "import_declaration":
		return []string{n.Kind()}
	case "method_declaration":
		return []string{n.Kind(), goReceiverType(field(n, "receiver", src)), field(n, "name", src)}
	case "type_declaration":
		if spec := firstNamed(n, "type_spec", "type_alias"); spec != nil {
			return []string{n.Kind(), field(spec, "name", src)}
		}
	case "const_declaration", "var_declaration":
		if spec := firstNamed(n, "const_spec", "var_spec", "var_spec_list"); spec != nil {
			if spec.Kind() == "var_spec_list" {
				spec = firstNamed(spec, "var_spec")
			}
			if spec != nil {
				return []string{n.Kind(), field(spec, "name", src)}
			}
		}
	case "import_spec":
		return []string{n.Kind(), field(n, "path", src)}
	}
	return named(n, src)
}

// goReceiverType extracts "T" or "*T" from a receiver list like "(s *T)".
func goReceiverType(recv string) string {
	fields := strings.Fields(strings.Trim(strings.TrimSpace(recv), "()"))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
