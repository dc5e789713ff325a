// Package merge implements structural merging of a template document into a
// destination document: signature matching, conflict resolution, freeze
// blocks, embedded regions and partial injection. Parsing is delegated to an
// ast.Parser supplied by the caller.
package merge

import (
	"log/slog"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// Engine merges documents of one format. An Engine holds no per-merge state
// and is safe for concurrent use.
type Engine struct {
	parser ast.Parser
	format ast.Format
	opts   Options
	token  string
	styles []freeze.Style
	log    *slog.Logger

	// subs holds the sub-engine for each region config, nil when the region
	// is kept verbatim.
	subs []*Engine
}

// New validates opts and builds an engine around parser, resolving every
// region sub-engine up front.
func New(parser ast.Parser, opts Options) (*Engine, error) {
	if parser == nil {
		return nil, &ConfigError{Field: "parser", Reason: "parser is required"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return build(parser, opts, 0, opts.MaxRegionDepth)
}

func build(parser ast.Parser, opts Options, depth, limit int) (*Engine, error) {
	format := parser.Format()

	token := opts.FreezeToken
	if token == "" {
		token = format.FreezeToken
	}
	if token == "" {
		token = DefaultFreezeToken
	}
	names := opts.CommentStyles
	if len(names) == 0 {
		names = format.CommentStyles
	}
	styles, err := freeze.Resolve(names)
	if err != nil {
		return nil, &ConfigError{Field: "comment_styles", Reason: err.Error()}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		parser: parser,
		format: format,
		opts:   opts,
		token:  token,
		styles: styles,
		log:    log.With("format", format.Name, "depth", depth),
		subs:   make([]*Engine, len(opts.Regions)),
	}
	for i, rc := range opts.Regions {
		if rc.Parser == nil || (limit > 0 && depth+1 > limit) {
			continue
		}
		sub, err := build(rc.Parser, rc.subOptions(opts), depth+1, limit)
		if err != nil {
			return nil, err
		}
		e.subs[i] = sub
	}
	return e, nil
}

func (rc RegionConfig) subOptions(parent Options) Options {
	var o Options
	if rc.Options != nil {
		o = *rc.Options
	} else {
		o = Options{
			Preference:      parent.Preference,
			AddTemplateOnly: parent.AddTemplateOnly,
			AddFilter:       parent.AddFilter,
		}
	}
	if len(o.Regions) == 0 {
		o.Regions = rc.Nested
	}
	if o.Logger == nil {
		o.Logger = parent.Logger
	}
	if o.RegionPlaceholder == "" {
		o.RegionPlaceholder = parent.RegionPlaceholder
	}
	return o
}

// Format returns the format the engine's parser handles.
func (e *Engine) Format() ast.Format { return e.format }

// FreezeToken returns the effective freeze marker token.
func (e *Engine) FreezeToken() string { return e.token }

// Merge merges template into destination and returns the merged text.
func (e *Engine) Merge(template, destination string) (string, error) {
	res, err := e.mergeResult(template, destination)
	if err != nil {
		return "", err
	}
	return res.Content(), nil
}

// MergeResult merges template into destination and returns the fragments,
// decisions and region outcomes alongside the text.
func (e *Engine) MergeResult(template, destination string) (*Result, error) {
	return e.mergeResult(template, destination)
}

// Inject applies a template fragment to the single destination section
// selected by inj, leaving the rest of the destination untouched.
func (e *Engine) Inject(fragment, destination string, inj Injection) (*Result, error) {
	return e.inject(fragment, destination, inj)
}

// Merge is a convenience wrapper building a one-off Engine.
func Merge(parser ast.Parser, template, destination string, opts Options) (string, error) {
	e, err := New(parser, opts)
	if err != nil {
		return "", err
	}
	return e.Merge(template, destination)
}

// load parses one input and detects its freeze blocks.
func (e *Engine) load(side Side, text string) (*document, error) {
	pr := e.parser.Parse(text)
	if !pr.Valid() {
		issues := pr.Issues
		if len(issues) == 0 {
			issues = []ast.Issue{{Message: "parser returned no tree"}}
		}
		return nil, &ParseError{Side: side, Format: e.format.Name, Issues: issues}
	}
	lines, trailing := splitLines(text)
	spans, err := freeze.Detect(lines, e.token, e.styles)
	if err != nil {
		return nil, &FreezeError{Side: side, Err: err}
	}
	if len(spans) > 0 {
		e.log.Debug("detected freeze blocks", "side", side, "count", len(spans))
	}
	return &document{
		side:            side,
		format:          e.format.Name,
		lines:           lines,
		trailingNewline: trailing,
		root:            pr.Root,
		frozen:          spans,
	}, nil
}

func (e *Engine) builder(doc *document) *listBuilder {
	return &listBuilder{
		doc:    doc,
		gen:    NewSignatureGenerator(doc.format, e.opts.Signature),
		typing: e.opts.NodeTyping,
	}
}

func (e *Engine) mergeResult(template, destination string) (*Result, error) {
	tx, err := e.extractRegions(SideTemplate, template)
	if err != nil {
		return nil, err
	}
	dx, err := e.extractRegions(SideDestination, destination)
	if err != nil {
		return nil, err
	}
	tdoc, err := e.load(SideTemplate, tx.text)
	if err != nil {
		return nil, err
	}
	ddoc, err := e.load(SideDestination, dx.text)
	if err != nil {
		return nil, err
	}

	r := &resolver{opts: &e.opts, log: e.log, tmpl: e.builder(tdoc), dest: e.builder(ddoc)}
	tl := rootList(r.tmpl)
	dl := rootList(r.dest)

	res := &Result{
		Fragments:       r.resolveLists(tl, dl, listSpacing(dl, tl)),
		trailingNewline: ddoc.trailingNewline || (len(ddoc.lines) == 0 && tdoc.trailingNewline),
	}
	res.Ambiguities = r.ambiguities

	if len(tx.regions) > 0 || len(dx.regions) > 0 {
		content, outcomes, err := e.restoreRegions(res.Content(), tx, dx)
		if err != nil {
			return nil, err
		}
		res.setContent(content)
		res.Regions = outcomes
	}
	return res, nil
}

// rootList builds the top-level statement list covering every line of the
// document.
func rootList(b *listBuilder) *StatementList {
	var bounds *ast.Span
	if n := len(b.doc.lines); n > 0 {
		bounds = &ast.Span{StartLine: 1, EndLine: n}
	}
	list, _, _ := b.build(b.doc.root.Children(), bounds, b.doc.frozen)
	return list
}
