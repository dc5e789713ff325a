package backend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

func init() {
	ast.RegisterKinds("rust", map[string]string{
		"function_item":   "function",
		"struct_item":     "type",
		"enum_item":       "type",
		"type_item":       "type",
		"trait_item":      "interface",
		"use_declaration": "import",
		"line_comment":    "comment",
		"block_comment":   "comment",
	})
}

// NewRust returns the Rust source parser.
func NewRust() *TreeSitter {
	return &TreeSitter{g: grammar{
		format: ast.Format{
			Name:          "rust",
			CommentStyles: []string{freeze.StyleCLine, freeze.StyleCBlock},
			FreezeToken:   "treemerge",
			Extensions:    []string{".rs"},
		},
		language:  tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		body:      rsBody,
		signature: rsSignature,
	}}
}

func rsBody(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "function_item", "impl_item", "trait_item", "mod_item", "struct_item", "enum_item", "union_item":
		return fieldBody(n)
	}
	return nil
}

func rsSignature(n *tree_sitter.Node, src []byte) []string {
	switch n.Kind() {
	case "impl_item":
		return []string{n.Kind(), squash(field(n, "trait", src)), squash(field(n, "type", src))}
	case "use_declaration":
		return []string{n.Kind(), squash(field(n, "argument", src))}
	case "attribute_item", "inner_attribute_item":
		return []string{n.Kind(), squash(n.Utf8Text(src))}
	}
	return named(n, src)
}
