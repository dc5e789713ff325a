package mcptools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/merge"
	"github.com/dusk-indust/treemerge/internal/recipe"
	"github.com/dusk-indust/treemerge/internal/report"
)

// MergeService holds the defaults used by the MCP tool handlers.
type MergeService struct {
	opts    merge.Options
	resolve func(format, path string) (ast.Parser, error)
	log     *slog.Logger
}

// NewMergeService creates a MergeService. Tool inputs override opts per
// call. A nil resolve means backend.Resolve.
func NewMergeService(opts merge.Options, resolve func(format, path string) (ast.Parser, error), log *slog.Logger) *MergeService {
	if resolve == nil {
		resolve = backend.Resolve
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &MergeService{opts: opts, resolve: resolve, log: log.With("component", "mcp")}
}

// MergeDocuments merges a template into a destination.
func (s *MergeService) MergeDocuments(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input MergeDocumentsInput,
) (*mcp.CallToolResult, MergeDocumentsOutput, error) {
	parser, err := s.parser(input.Format, input.Path)
	if err != nil {
		return nil, MergeDocumentsOutput{}, err
	}

	opts := s.opts
	if input.Preference != "" || len(input.PreferByKind) > 0 {
		opts.Preference = merge.Preference{Default: opts.Preference.Default, ByKind: map[string]merge.Side{}}
		if input.Preference != "" {
			opts.Preference.Default = merge.Side(input.Preference)
		}
		for k, v := range s.opts.Preference.ByKind {
			opts.Preference.ByKind[k] = v
		}
		for k, v := range input.PreferByKind {
			opts.Preference.ByKind[k] = merge.Side(v)
		}
	}
	opts.AddTemplateOnly = opts.AddTemplateOnly || input.AddTemplateOnly
	if input.FreezeToken != "" {
		opts.FreezeToken = input.FreezeToken
	}

	e, err := merge.New(parser, opts)
	if err != nil {
		return nil, MergeDocumentsOutput{}, err
	}
	res, err := e.MergeResult(input.Template, input.Destination)
	if err != nil {
		return nil, MergeDocumentsOutput{}, err
	}
	s.log.Debug("merged", "format", e.Format().Name, "summary", res.Summary())
	return nil, MergeDocumentsOutput{outcome(res, e.Format().Name, input.Path, input.Destination, input.Diff)}, nil
}

// InjectSection places a fragment into a destination relative to an anchor.
func (s *MergeService) InjectSection(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input InjectSectionInput,
) (*mcp.CallToolResult, InjectSectionOutput, error) {
	parser, err := s.parser(input.Format, input.Path)
	if err != nil {
		return nil, InjectSectionOutput{}, err
	}

	r := &recipe.Recipe{
		Format:      parser.Format().Name,
		Fragment:    input.Fragment,
		Anchor:      input.Anchor.match(),
		Position:    input.Position,
		WhenMissing: input.WhenMissing,
		Mode:        input.Mode,
		Preference:  input.Preference,
		Add:         input.Add,
	}
	if input.Boundary != nil {
		b := input.Boundary.match()
		r.Boundary = &b
	}
	inj, err := r.Injection()
	if err != nil {
		return nil, InjectSectionOutput{}, err
	}
	opts, err := r.Options(r.Format)
	if err != nil {
		return nil, InjectSectionOutput{}, err
	}
	opts.FreezeToken = s.opts.FreezeToken
	opts.Logger = s.opts.Logger

	e, err := merge.New(parser, opts)
	if err != nil {
		return nil, InjectSectionOutput{}, err
	}
	res, err := e.Inject(input.Fragment, input.Destination, inj)
	if err != nil {
		return nil, InjectSectionOutput{}, err
	}
	s.log.Debug("injected", "format", e.Format().Name, "position", inj.Position, "summary", res.Summary())
	return nil, InjectSectionOutput{outcome(res, e.Format().Name, input.Path, input.Destination, input.Diff)}, nil
}

// ListFormats reports every registered backend.
func (s *MergeService) ListFormats(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListFormatsInput,
) (*mcp.CallToolResult, ListFormatsOutput, error) {
	return nil, ListFormatsOutput{Formats: backend.Formats()}, nil
}

func (s *MergeService) parser(format, path string) (ast.Parser, error) {
	if format == "" && path == "" {
		return nil, fmt.Errorf("one of format or path is required")
	}
	return s.resolve(format, path)
}

func (m MatchInput) match() recipe.Match {
	return recipe.Match{
		Kind:            m.Kind,
		Text:            m.Text,
		MinDepth:        m.MinDepth,
		MaxDepth:        m.MaxDepth,
		SameOrShallower: m.SameOrShallower,
	}
}

func outcome(res *merge.Result, format, path, before string, diff bool) MergeOutcome {
	content := res.Content()
	stats := make(map[string]int)
	for d, n := range res.Stats() {
		stats[string(d)] = n
	}
	out := MergeOutcome{
		Content:     content,
		Format:      format,
		Changed:     content != before,
		Summary:     res.Summary(),
		Stats:       stats,
		Ambiguities: res.Ambiguities,
	}
	if diff {
		name := path
		if name == "" {
			name = "destination"
		}
		out.Diff = report.UnifiedDiff(name, before, content, report.DefaultContext)
	}
	return out
}
