package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/merge"
)

// ProjectConfig holds project-level settings loaded from treemerge.yml.
type ProjectConfig struct {
	Preference      string            `yaml:"preference,omitempty"`
	PreferByKind    map[string]string `yaml:"preferByKind,omitempty"`
	AddTemplateOnly bool              `yaml:"addTemplateOnly,omitempty"`
	FreezeToken     string            `yaml:"freezeToken,omitempty"`
	Placeholder     string            `yaml:"placeholder,omitempty"`
	MaxRegionDepth  int               `yaml:"maxRegionDepth,omitempty"`

	// Formats maps a file extension (".tmpl") to a registered format name.
	Formats map[string]string `yaml:"formats,omitempty"`

	Regions []RegionSpec `yaml:"regions,omitempty"`

	Concurrency int    `yaml:"concurrency,omitempty"`
	Pairs       []Pair `yaml:"pairs,omitempty"`
}

// RegionSpec declares one embedded-region detector.
type RegionSpec struct {
	// Detector is one of frontmatter, fenced or delimited.
	Detector  string   `yaml:"detector"`
	Name      string   `yaml:"name,omitempty"`
	Languages []string `yaml:"languages,omitempty"`
	Open      string   `yaml:"open,omitempty"`
	Close     string   `yaml:"close,omitempty"`

	// Format names the backend that merges region contents. Empty keeps
	// destination content verbatim.
	Format     string       `yaml:"format,omitempty"`
	Preference string       `yaml:"preference,omitempty"`
	Nested     []RegionSpec `yaml:"nested,omitempty"`
}

// Pair is one template/destination file pair for batch merging.
type Pair struct {
	Template    string `yaml:"template"`
	Destination string `yaml:"destination"`
	Format      string `yaml:"format,omitempty"`
	Output      string `yaml:"output,omitempty"`
}

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"treemerge.yml", "treemerge.yaml"}

// Load attempts to read treemerge.yml or treemerge.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.resolvePairs(dir)
		return cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Parse decodes a config document. Unknown fields are rejected.
func Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// resolvePairs makes relative pair paths relative to dir.
func (c *ProjectConfig) resolvePairs(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range c.Pairs {
		c.Pairs[i].Template = abs(c.Pairs[i].Template)
		c.Pairs[i].Destination = abs(c.Pairs[i].Destination)
		c.Pairs[i].Output = abs(c.Pairs[i].Output)
	}
}

// ParserFor picks the backend for path: an explicit format wins, then the
// config's extension overrides, then the backend registry.
func (c *ProjectConfig) ParserFor(format, path string) (ast.Parser, error) {
	if format == "" {
		format = c.Formats[strings.ToLower(filepath.Ext(path))]
	}
	return backend.Resolve(format, path)
}

// Options converts the file settings into engine options.
func (c *ProjectConfig) Options() (merge.Options, error) {
	pref, err := preference(c.Preference, c.PreferByKind)
	if err != nil {
		return merge.Options{}, err
	}
	regions, err := regionConfigs("regions", c.Regions, c.AddTemplateOnly)
	if err != nil {
		return merge.Options{}, err
	}
	return merge.Options{
		Preference:        pref,
		AddTemplateOnly:   c.AddTemplateOnly,
		FreezeToken:       c.FreezeToken,
		Regions:           regions,
		RegionPlaceholder: c.Placeholder,
		MaxRegionDepth:    c.MaxRegionDepth,
	}, nil
}

func side(field, s string) (merge.Side, error) {
	switch merge.Side(s) {
	case "":
		return "", nil
	case merge.SideTemplate, merge.SideDestination:
		return merge.Side(s), nil
	}
	return "", &merge.ConfigError{Field: field, Reason: fmt.Sprintf("unknown side %q", s)}
}

func preference(def string, byKind map[string]string) (merge.Preference, error) {
	d, err := side("preference", def)
	if err != nil {
		return merge.Preference{}, err
	}
	p := merge.Preference{Default: d}
	for kind, s := range byKind {
		ks, err := side("preferByKind."+kind, s)
		if err != nil {
			return merge.Preference{}, err
		}
		if p.ByKind == nil {
			p.ByKind = make(map[string]merge.Side)
		}
		p.ByKind[kind] = ks
	}
	return p, nil
}

func regionConfigs(field string, specs []RegionSpec, add bool) ([]merge.RegionConfig, error) {
	var out []merge.RegionConfig
	for i, rs := range specs {
		f := fmt.Sprintf("%s[%d]", field, i)
		det, err := rs.detector(f)
		if err != nil {
			return nil, err
		}
		rc := merge.RegionConfig{Detector: det}
		if rs.Format != "" {
			p, ok := backend.Lookup(rs.Format)
			if !ok {
				return nil, &merge.ConfigError{Field: f + ".format", Reason: fmt.Sprintf("unknown format %q", rs.Format)}
			}
			rc.Parser = p
		}
		if rs.Preference != "" {
			if rc.Parser == nil {
				return nil, &merge.ConfigError{Field: f + ".preference", Reason: "preference needs a format"}
			}
			pref, err := preference(rs.Preference, nil)
			if err != nil {
				return nil, err
			}
			rc.Options = &merge.Options{Preference: pref, AddTemplateOnly: add}
		}
		if rc.Nested, err = regionConfigs(f+".nested", rs.Nested, add); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func (rs RegionSpec) detector(field string) (merge.Detector, error) {
	switch rs.Detector {
	case "frontmatter":
		return merge.FrontMatter{}, nil
	case "fenced":
		return merge.Fenced{Languages: rs.Languages}, nil
	case "delimited":
		if rs.Open == "" || rs.Close == "" {
			return nil, &merge.ConfigError{Field: field, Reason: "delimited regions need open and close patterns"}
		}
		open, err := regexp.Compile(rs.Open)
		if err != nil {
			return nil, &merge.ConfigError{Field: field + ".open", Reason: err.Error()}
		}
		cl, err := regexp.Compile(rs.Close)
		if err != nil {
			return nil, &merge.ConfigError{Field: field + ".close", Reason: err.Error()}
		}
		return merge.Delimited{Name: rs.Name, Open: open, Close: cl}, nil
	}
	return nil, &merge.ConfigError{Field: field + ".detector", Reason: fmt.Sprintf("unknown detector %q", rs.Detector)}
}
