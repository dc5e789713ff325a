package backend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

func init() {
	ast.RegisterKinds("typescript", map[string]string{
		"function_declaration":       "function",
		"class_declaration":          "class",
		"abstract_class_declaration": "class",
		"interface_declaration":      "interface",
		"type_alias_declaration":     "type",
		"import_statement":           "import",
		"comment":                    "comment",
	})
}

// NewTypeScript returns the TypeScript source parser.
func NewTypeScript() *TreeSitter {
	return &TreeSitter{g: grammar{
		format: ast.Format{
			Name:          "typescript",
			CommentStyles: []string{freeze.StyleCLine, freeze.StyleCBlock},
			FreezeToken:   "treemerge",
			Extensions:    []string{".ts", ".mts", ".cts"},
		},
		language:  tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		body:      tsBody,
		signature: tsSignature,
	}}
}

func tsBody(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "function_declaration", "class_declaration", "abstract_class_declaration",
		"interface_declaration", "enum_declaration", "method_definition", "internal_module", "module":
		return fieldBody(n)
	case "export_statement":
		if d := n.ChildByFieldName("declaration"); d != nil {
			return tsBody(d)
		}
	}
	return nil
}

func tsSignature(n *tree_sitter.Node, src []byte) []string {
	switch n.Kind() {
	case "export_statement":
		if d := n.ChildByFieldName("declaration"); d != nil {
			if inner := tsSignature(d, src); inner != nil {
				return append([]string{n.Kind()}, inner...)
			}
		}
		return []string{n.Kind(), squash(n.Utf8Text(src))}
	case "import_statement":
		return []string{n.Kind(), field(n, "source", src)}
	case "lexical_declaration", "variable_declaration":
		if d := firstNamed(n, "variable_declarator"); d != nil {
			return []string{n.Kind(), field(d, "name", src)}
		}
	}
	return named(n, src)
}
