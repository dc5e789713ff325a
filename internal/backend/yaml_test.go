package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treemerge/internal/ast"
)

const yamlDoc = `a: 1
b:
  c: 2
  d: 3
# trailing
list:
  - x
  - name: y
    v: 1
`

func TestYAMLBackends_PairsAndItems(t *testing.T) {
	for _, p := range []ast.Parser{NewYAML(), NewGoccyYAML()} {
		t.Run(p.Format().Name, func(t *testing.T) {
			format := p.Format().Name
			root := parse(t, p, yamlDoc)

			top := root.Children()
			require.Len(t, top, 3)
			for _, n := range top {
				assert.Equal(t, KindYAMLPair, ast.CanonicalKind(format, n.Kind()))
			}
			assert.Equal(t, "a", sig(top[0])[1])
			assert.Equal(t, [2]int{1, 1}, lineSpan(t, top[0]))

			b := top[1]
			assert.Equal(t, [2]int{2, 4}, lineSpan(t, b), "a comment before the next key is not part of the pair")
			require.Len(t, b.Children(), 2)
			assert.Equal(t, "d", sig(b.Children()[1])[1])
			assert.Equal(t, [2]int{4, 4}, lineSpan(t, b.Children()[1]))

			list := top[2]
			assert.Equal(t, [2]int{6, 9}, lineSpan(t, list))
			items := list.Children()
			require.Len(t, items, 2)
			assert.Equal(t, KindYAMLItem, ast.CanonicalKind(format, items[0].Kind()))
			assert.Equal(t, "x", sig(items[0])[1])
			assert.Equal(t, "name: y", sig(items[1])[1])
			assert.Equal(t, [2]int{8, 9}, lineSpan(t, items[1]))
			assert.Len(t, items[1].Children(), 2)
		})
	}
}

func TestYAMLBackends_MultipleDocuments(t *testing.T) {
	for _, p := range []ast.Parser{NewYAML(), NewGoccyYAML()} {
		t.Run(p.Format().Name, func(t *testing.T) {
			root := parse(t, p, "a: 1\n---\nb: 2\n")
			docs := root.Children()
			require.Len(t, docs, 2)
			assert.Equal(t, KindYAMLDocument, ast.CanonicalKind(p.Format().Name, docs[0].Kind()))
			assert.Equal(t, [2]int{1, 1}, lineSpan(t, docs[0]), "the separator belongs to the gap")
			assert.Equal(t, [2]int{3, 3}, lineSpan(t, docs[1]))
			assert.Equal(t, "1", sig(docs[1])[1])
		})
	}
}

func TestYAMLBackends_FlowCollectionsAreLeaves(t *testing.T) {
	for _, p := range []ast.Parser{NewYAML(), NewGoccyYAML()} {
		t.Run(p.Format().Name, func(t *testing.T) {
			root := parse(t, p, "tags: [a, b]\nopts: {x: 1}\n")
			for _, n := range root.Children() {
				assert.Empty(t, n.Children(), n.Text())
			}
		})
	}
}

func TestYAMLBackends_SyntaxErrors(t *testing.T) {
	for _, p := range []ast.Parser{NewYAML(), NewGoccyYAML()} {
		t.Run(p.Format().Name, func(t *testing.T) {
			pr := p.Parse("a: [1, 2\nb: 3\n")
			assert.False(t, pr.Valid())
			require.NotEmpty(t, pr.Issues)
			assert.NotEmpty(t, pr.Issues[0].Message)
		})
	}
}

func TestYAML_EmptyDocument(t *testing.T) {
	root := parse(t, NewYAML(), "")
	assert.Empty(t, root.Children())
}
