package merge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
)

// DefaultFreezeToken is used when neither the options nor the format name a
// freeze token.
const DefaultFreezeToken = "treemerge"

// Preference decides which side wins when matched content differs.
// ByKind is consulted with the unit's node-typing tag first, then its
// canonical kind, then its raw kind; Default applies otherwise. The zero
// value prefers the destination.
type Preference struct {
	Default Side
	ByKind  map[string]Side
}

// PreferTemplate returns a Preference that always picks the template.
func PreferTemplate() Preference { return Preference{Default: SideTemplate} }

// PreferDestination returns a Preference that always picks the destination.
func PreferDestination() Preference { return Preference{Default: SideDestination} }

// For returns the preferred side for the first key present in ByKind.
func (p Preference) For(keys ...string) Side {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if s, ok := p.ByKind[k]; ok {
			return s
		}
	}
	if p.Default == "" {
		return SideDestination
	}
	return p.Default
}

// TypingFunc assigns a logical tag to a node. An empty tag leaves the node
// untagged.
type TypingFunc func(n ast.Node) string

// Options configures an Engine.
type Options struct {
	Preference Preference

	// AddTemplateOnly adds template units that have no destination
	// counterpart. When AddFilter is set it decides per unit instead.
	AddTemplateOnly bool
	AddFilter       func(n ast.Node) bool

	// FreezeToken overrides the format's freeze token.
	FreezeToken string

	// CommentStyles overrides the format's freeze comment styles.
	CommentStyles []string

	Signature SignatureFunc

	// NodeTyping maps a kind (canonical or raw) to the function that tags
	// nodes of that kind.
	NodeTyping map[string]TypingFunc

	Regions []RegionConfig

	// RegionPlaceholder is the placeholder prefix; DefaultPlaceholderPrefix
	// when empty.
	RegionPlaceholder string

	// MaxRegionDepth bounds nested region merges. Zero means unbounded.
	MaxRegionDepth int

	Logger *slog.Logger
}

func (o *Options) wantsAdd(n ast.Node) bool {
	if o.AddFilter != nil {
		return o.AddFilter(n)
	}
	return o.AddTemplateOnly
}

func (o *Options) placeholderPrefix() string {
	if o.RegionPlaceholder != "" {
		return o.RegionPlaceholder
	}
	return DefaultPlaceholderPrefix
}

func validSide(s Side) bool {
	return s == "" || s == SideTemplate || s == SideDestination
}

func (o *Options) validate() error {
	if !validSide(o.Preference.Default) {
		return &ConfigError{Field: "preference", Reason: fmt.Sprintf("unknown side %q", o.Preference.Default)}
	}
	for kind, s := range o.Preference.ByKind {
		if !validSide(s) || s == "" {
			return &ConfigError{Field: "preference." + kind, Reason: fmt.Sprintf("unknown side %q", s)}
		}
	}
	for kind, fn := range o.NodeTyping {
		if fn == nil {
			return &ConfigError{Field: "node_typing." + kind, Reason: "typing function is nil"}
		}
	}
	if o.MaxRegionDepth < 0 {
		return &ConfigError{Field: "max_region_depth", Reason: fmt.Sprintf("must be positive, got %d", o.MaxRegionDepth)}
	}
	if strings.ContainsAny(o.RegionPlaceholder, "\r\n") {
		return &ConfigError{Field: "region_placeholder", Reason: "must be a single line"}
	}
	if strings.ContainsAny(o.FreezeToken, " \t\r\n") {
		return &ConfigError{Field: "freeze_token", Reason: "must not contain whitespace"}
	}
	return validateRegions("regions", o.Regions)
}

func validateRegions(field string, regions []RegionConfig) error {
	for i, rc := range regions {
		f := fmt.Sprintf("%s[%d]", field, i)
		if rc.Detector == nil {
			return &ConfigError{Field: f + ".detector", Reason: "detector is required"}
		}
		if rc.Options != nil && rc.Parser == nil {
			return &ConfigError{Field: f + ".sub_engine_options", Reason: "options given without a sub-engine parser"}
		}
		if rc.Options != nil {
			if err := rc.Options.validate(); err != nil {
				return err
			}
		}
		if err := validateRegions(f+".nested_regions", rc.Nested); err != nil {
			return err
		}
	}
	return nil
}
