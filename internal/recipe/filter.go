package recipe

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/merge"
)

// FilterEnv is what an add expression sees for one template node.
type FilterEnv struct {
	Kind      string   `expr:"kind"`
	Canonical string   `expr:"canonical"`
	Text      string   `expr:"text"`
	StartLine int      `expr:"startLine"`
	EndLine   int      `expr:"endLine"`
	Children  int      `expr:"children"`
	Signature []string `expr:"signature"`
}

func envFor(n ast.Node, format string) FilterEnv {
	raw, _ := ast.Unwrap(n)
	env := FilterEnv{
		Kind:      raw.Kind(),
		Canonical: ast.CanonicalKind(format, raw.Kind()),
		Text:      strings.TrimSpace(raw.Text()),
		Children:  len(raw.Children()),
	}
	if sp, ok := raw.Span(); ok {
		env.StartLine, env.EndLine = sp.StartLine, sp.EndLine
	}
	if sig, ok := raw.Signature(); ok {
		env.Signature = sig
	}
	return env
}

// CompileFilter compiles an expr-lang boolean expression over FilterEnv
// into an add filter. A node for which evaluation fails is not added.
func CompileFilter(src, format string) (func(ast.Node) bool, error) {
	prg, err := expr.Compile(src, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, &merge.ConfigError{Field: "add", Reason: err.Error()}
	}
	return func(n ast.Node) bool {
		return run(prg, envFor(n, format))
	}, nil
}

func run(prg *vm.Program, env FilterEnv) bool {
	out, err := expr.Run(prg, env)
	if err != nil {
		return false
	}
	b, _ := out.(bool)
	return b
}
