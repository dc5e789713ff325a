package merge

import (
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
)

// Signature is the identity key used to pair units across the two trees.
// Two units match iff their signatures are equal.
type Signature string

const sigSep = "\x1f"

// NoSignature excludes a node from matching. DefaultSignature, returned by a
// SignatureFunc, defers to the adapter or the built-in generator.
const (
	NoSignature      Signature = "\x00"
	DefaultSignature Signature = ""
)

// NewSignature builds a signature from ordered parts.
func NewSignature(parts ...string) Signature {
	return Signature(strings.Join(parts, sigSep))
}

// Parts splits a signature back into its components.
func (s Signature) Parts() []string {
	if s == "" || s == NoSignature {
		return nil
	}
	return strings.Split(string(s), sigSep)
}

func (s Signature) String() string {
	switch s {
	case NoSignature:
		return "<none>"
	case DefaultSignature:
		return "<default>"
	}
	return strings.Join(s.Parts(), "|")
}

// Matchable reports whether s takes part in matching.
func (s Signature) Matchable() bool {
	return s != NoSignature && s != DefaultSignature
}

// SignatureFunc overrides signature generation for a node. It receives the
// node as the engine sees it, including any node-typing wrapper.
type SignatureFunc func(n ast.Node) Signature

// SignatureGenerator computes signatures for one document format.
type SignatureGenerator struct {
	format   string
	override SignatureFunc
}

// NewSignatureGenerator returns a generator for format with an optional
// override.
func NewSignatureGenerator(format string, override SignatureFunc) SignatureGenerator {
	return SignatureGenerator{format: format, override: override}
}

// Of returns the signature of n. The override runs first; then an
// adapter-provided signature; then (canonical kind, trimmed text). The first
// part of an adapter signature is treated as a kind and canonicalized.
func (g SignatureGenerator) Of(n ast.Node) Signature {
	if g.override != nil {
		if s := g.override(n); s != DefaultSignature {
			return s
		}
	}
	inner, _ := ast.Unwrap(n)
	if parts, ok := inner.Signature(); ok && len(parts) > 0 {
		out := make([]string, len(parts))
		copy(out, parts)
		out[0] = ast.CanonicalKind(g.format, out[0])
		return NewSignature(out...)
	}
	return NewSignature(ast.CanonicalKind(g.format, inner.Kind()), ast.NormalizeText(inner.Text()))
}

// frozenSignature is the content-identity key of a freeze block.
func frozenSignature(verbatim string) Signature {
	return NewSignature(kindFrozen, verbatim)
}
