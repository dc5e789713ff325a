package backend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

func init() {
	ast.RegisterKinds("python", map[string]string{
		"function_definition":   "function",
		"class_definition":      "class",
		"import_statement":      "import",
		"import_from_statement": "import",
		"comment":               "comment",
	})
}

// NewPython returns the Python source parser.
func NewPython() *TreeSitter {
	return &TreeSitter{g: grammar{
		format: ast.Format{
			Name:          "python",
			CommentStyles: []string{freeze.StyleHash},
			FreezeToken:   "treemerge",
			Extensions:    []string{".py", ".pyi"},
		},
		language:  tree_sitter.NewLanguage(tree_sitter_python.Language()),
		body:      pyBody,
		signature: pySignature,
	}}
}

func pyBody(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "function_definition", "class_definition":
		return fieldBody(n)
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return fieldBody(def)
		}
	}
	return nil
}

func pySignature(n *tree_sitter.Node, src []byte) []string {
	switch n.Kind() {
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return []string{def.Kind(), field(def, "name", src)}
		}
	case "import_from_statement":
		return []string{n.Kind(), field(n, "module_name", src)}
	case "expression_statement":
		if a := firstNamed(n, "assignment"); a != nil {
			return []string{"assignment", squash(field(a, "left", src))}
		}
	}
	return named(n, src)
}
