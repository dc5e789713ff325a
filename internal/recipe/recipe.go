// Package recipe loads partial-injection recipes: a template fragment plus
// the anchor, boundary and policy that place it into a destination.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-yaml"

	"github.com/dusk-indust/treemerge/internal/merge"
)

// Recipe is the on-disk form of one injection.
//
//	format: markdown
//	template: fragments/install.md
//	anchor: {kind: section, text: "^## Install"}
//	boundary: {kind: section, sameOrShallower: true}
//	position: replace
//	whenMissing: add
//	mode: merge
//	add: 'kind == "paragraph"'
type Recipe struct {
	Name   string `yaml:"name,omitempty"`
	Format string `yaml:"format,omitempty"`

	// Template is a path to the fragment, relative to the recipe file.
	// Fragment holds the fragment inline; exactly one of the two is set.
	Template string `yaml:"template,omitempty"`
	Fragment string `yaml:"fragment,omitempty"`

	Anchor   Match  `yaml:"anchor"`
	Boundary *Match `yaml:"boundary,omitempty"`

	Position    string `yaml:"position"`
	WhenMissing string `yaml:"whenMissing,omitempty"`
	Mode        string `yaml:"mode,omitempty"`

	// Preference and Add configure the merge run in merge mode. Add is an
	// expression deciding which template-only nodes are added.
	Preference string `yaml:"preference,omitempty"`
	Add        string `yaml:"add,omitempty"`

	dir string
}

// Match is the serialized form of a merge.Predicate.
type Match struct {
	Kind            string `yaml:"kind,omitempty"`
	Text            string `yaml:"text,omitempty"`
	MinDepth        int    `yaml:"minDepth,omitempty"`
	MaxDepth        int    `yaml:"maxDepth,omitempty"`
	SameOrShallower bool   `yaml:"sameOrShallower,omitempty"`
}

// Load reads and validates the recipe at path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.dir = filepath.Dir(path)
	return r, nil
}

// Parse decodes a recipe document. Unknown fields are rejected.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.UnmarshalWithOptions(data, &r, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse recipe: %s", yaml.FormatError(err, false, true))
	}
	if r.Template != "" && r.Fragment != "" {
		return nil, &merge.ConfigError{Field: "template", Reason: "template and fragment are mutually exclusive"}
	}
	if r.Template == "" && r.Fragment == "" {
		return nil, &merge.ConfigError{Field: "template", Reason: "one of template or fragment is required"}
	}
	return &r, nil
}

// Content returns the fragment text, reading the template file if needed.
func (r *Recipe) Content() (string, error) {
	if r.Fragment != "" {
		return r.Fragment, nil
	}
	path := r.Template
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read recipe template: %w", err)
	}
	return string(data), nil
}

// Injection converts the recipe into the engine's injection configuration.
func (r *Recipe) Injection() (merge.Injection, error) {
	anchor, err := r.Anchor.predicate("anchor")
	if err != nil {
		return merge.Injection{}, err
	}
	inj := merge.Injection{
		Anchor:      anchor,
		Position:    merge.Position(r.Position),
		WhenMissing: merge.WhenMissing(r.WhenMissing),
		Mode:        merge.InjectMode(r.Mode),
	}
	if r.Boundary != nil {
		b, err := r.Boundary.predicate("boundary")
		if err != nil {
			return merge.Injection{}, err
		}
		inj.Boundary = &b
	}
	return inj, nil
}

// Options returns engine options for format carrying the recipe's
// preference and add filter.
func (r *Recipe) Options(format string) (merge.Options, error) {
	var opts merge.Options
	switch merge.Side(r.Preference) {
	case "":
	case merge.SideTemplate, merge.SideDestination:
		opts.Preference.Default = merge.Side(r.Preference)
	default:
		return opts, &merge.ConfigError{Field: "preference", Reason: fmt.Sprintf("unknown side %q", r.Preference)}
	}
	if r.Add != "" {
		f, err := CompileFilter(r.Add, format)
		if err != nil {
			return opts, err
		}
		opts.AddFilter = f
	}
	return opts, nil
}

func (m Match) predicate(field string) (merge.Predicate, error) {
	p := merge.Predicate{
		Kind:            m.Kind,
		MinDepth:        m.MinDepth,
		MaxDepth:        m.MaxDepth,
		SameOrShallower: m.SameOrShallower,
	}
	if m.Text != "" {
		re, err := regexp.Compile(m.Text)
		if err != nil {
			return p, &merge.ConfigError{Field: field + ".text", Reason: err.Error()}
		}
		p.Pattern = re
	}
	return p, nil
}
