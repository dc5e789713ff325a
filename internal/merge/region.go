package merge

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

// Placeholder framing. A placeholder occupies one whole line:
// prefix + decimal index + suffix.
const (
	DefaultPlaceholderPrefix = "<<<TREEMERGE_REGION_"
	PlaceholderSuffix        = ">>>"
)

// Delimiters are the opening and closing marker lines of a region.
type Delimiters struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Region is an embedded sub-document found by a Detector. Lines are
// 1-based and inclusive, delimiters included. Content excludes the
// delimiters and ends with a newline unless empty.
type Region struct {
	Index      int               `json:"index"`
	Kind       string            `json:"kind"`
	Content    string            `json:"content"`
	StartLine  int               `json:"startLine"`
	EndLine    int               `json:"endLine"`
	Delimiters *Delimiters       `json:"delimiters,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// Frozen is set when a freeze block strictly encloses the region.
	Frozen bool `json:"frozen,omitempty"`

	config int
}

// render reattaches the delimiters to content.
func (r *Region) render(content string) string {
	if r.Delimiters == nil {
		return strings.TrimSuffix(content, "\n")
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return r.Delimiters.Open + "\n" + content + r.Delimiters.Close
}

// Detector finds regions in raw document lines. Detectors must be
// deterministic; results need not be sorted.
type Detector interface {
	Kind() string
	Detect(lines []string) []Region
}

// RegionConfig pairs a detector with the parser used to merge what it finds.
type RegionConfig struct {
	Detector Detector

	// Parser merges region contents with a sub-engine. Nil keeps the
	// destination content verbatim, falling back to the template's.
	Parser ast.Parser

	// Options for the sub-engine. Nil inherits preference, add policy and
	// logger from the parent.
	Options *Options

	// Nested regions are extracted from region contents before the
	// sub-engine parses them.
	Nested []RegionConfig
}

func joinContent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// FrontMatter detects a metadata block opening on the first line with "---"
// (YAML) or "+++" (TOML) and closing at the next identical line.
type FrontMatter struct{}

func (FrontMatter) Kind() string { return "front_matter" }

func (FrontMatter) Detect(lines []string) []Region {
	if len(lines) < 2 {
		return nil
	}
	open := strings.TrimRight(lines[0], " \t")
	var format string
	switch open {
	case "---":
		format = "yaml"
	case "+++":
		format = "toml"
	default:
		return nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == open {
			return []Region{{
				Kind:       "front_matter",
				Content:    joinContent(lines[1:i]),
				StartLine:  1,
				EndLine:    i + 1,
				Delimiters: &Delimiters{Open: lines[0], Close: lines[i]},
				Metadata:   map[string]string{"format": format},
			}}
		}
	}
	return nil
}

var fenceOpen = regexp.MustCompile("^(\\s*)(`{3,}|~{3,})\\s*([^`\\s]*)(.*)$")

// Fenced detects ``` or ~~~ code fences. When Languages is non-empty only
// fences whose info string names one of them are reported.
type Fenced struct {
	Languages []string
}

func (Fenced) Kind() string { return "fenced" }

func (f Fenced) wants(lang string) bool {
	if len(f.Languages) == 0 {
		return true
	}
	for _, l := range f.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

func (f Fenced) Detect(lines []string) []Region {
	var out []Region
	for i := 0; i < len(lines); i++ {
		m := fenceOpen.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		fence, lang := m[2], m[3]
		end := -1
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if len(t) >= len(fence) && t[0] == fence[0] && strings.Trim(t, fence[:1]) == "" {
				end = j
				break
			}
		}
		if end < 0 {
			return out
		}
		if f.wants(lang) {
			out = append(out, Region{
				Kind:       "fenced",
				Content:    joinContent(lines[i+1 : end]),
				StartLine:  i + 1,
				EndLine:    end + 1,
				Delimiters: &Delimiters{Open: lines[i], Close: lines[end]},
				Metadata:   map[string]string{"language": lang},
			})
		}
		i = end
	}
	return out
}

// Delimited detects regions opened by a line matching Open and closed by the
// next line matching Close.
type Delimited struct {
	Name  string
	Open  *regexp.Regexp
	Close *regexp.Regexp
}

func (d Delimited) Kind() string {
	if d.Name == "" {
		return "delimited"
	}
	return d.Name
}

func (d Delimited) Detect(lines []string) []Region {
	if d.Open == nil || d.Close == nil {
		return nil
	}
	var out []Region
	for i := 0; i < len(lines); i++ {
		if !d.Open.MatchString(lines[i]) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if d.Close.MatchString(lines[j]) {
				out = append(out, Region{
					Kind:       d.Kind(),
					Content:    joinContent(lines[i+1 : j]),
					StartLine:  i + 1,
					EndLine:    j + 1,
					Delimiters: &Delimiters{Open: lines[i], Close: lines[j]},
				})
				i = j
				break
			}
		}
	}
	return out
}

// extraction is a document with its regions replaced by placeholders.
type extraction struct {
	text    string
	regions []Region
}

func placeholder(prefix string, index int) string {
	return prefix + strconv.Itoa(index) + PlaceholderSuffix
}

// extractRegions runs every detector over text in a single left-to-right
// pass. Overlapping detections keep the earliest region; ties go to the
// first configured detector.
func (e *Engine) extractRegions(side Side, text string) (*extraction, error) {
	if len(e.opts.Regions) == 0 {
		return &extraction{text: text}, nil
	}
	prefix := e.opts.placeholderPrefix()
	if strings.Contains(text, prefix) {
		return nil, &PlaceholderCollisionError{Side: side, Placeholder: prefix}
	}

	lines, trailing := splitLines(text)
	var found []Region
	for ci, rc := range e.opts.Regions {
		for _, r := range rc.Detector.Detect(lines) {
			r.config = ci
			found = append(found, r)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].StartLine != found[j].StartLine {
			return found[i].StartLine < found[j].StartLine
		}
		return found[i].config < found[j].config
	})

	spans, err := freeze.Detect(lines, e.token, e.styles)
	if err != nil {
		return nil, &FreezeError{Side: side, Err: err}
	}

	var regions []Region
	last := 0
	for _, r := range found {
		if r.StartLine <= last || r.StartLine < 1 || r.EndLine > len(lines) || r.EndLine < r.StartLine {
			continue
		}
		r.Index = len(regions)
		for _, fs := range spans {
			if fs.StartLine < r.StartLine && r.EndLine < fs.EndLine {
				r.Frozen = true
			}
		}
		regions = append(regions, r)
		last = r.EndLine
	}
	if len(regions) == 0 {
		return &extraction{text: text}, nil
	}

	out := make([]string, 0, len(lines))
	next := 1
	for _, r := range regions {
		out = append(out, lines[next-1:r.StartLine-1]...)
		out = append(out, placeholder(prefix, r.Index))
		next = r.EndLine + 1
	}
	out = append(out, lines[next-1:]...)
	joined := strings.Join(out, "\n")
	if trailing {
		joined += "\n"
	}

	e.log.Debug("extracted regions", "side", side, "count", len(regions))
	return &extraction{text: joined, regions: regions}, nil
}

// restoreRegions replaces every placeholder line in merged with the merged
// content of the region pair at that index.
func (e *Engine) restoreRegions(merged string, tmpl, dest *extraction) (string, []RegionOutcome, error) {
	if len(tmpl.regions) == 0 && len(dest.regions) == 0 {
		return merged, nil, nil
	}
	prefix := e.opts.placeholderPrefix()
	pattern := regexp.MustCompile("^\\s*" + regexp.QuoteMeta(prefix) + "(\\d+)" + regexp.QuoteMeta(PlaceholderSuffix) + "\\s*$")

	lines := strings.Split(merged, "\n")
	done := make(map[int]string)
	var outcomes []RegionOutcome
	for i, line := range lines {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		text, ok := done[idx]
		if !ok {
			var outcome RegionOutcome
			text, outcome, err = e.mergeRegion(idx, regionAt(tmpl.regions, idx), regionAt(dest.regions, idx))
			if err != nil {
				return "", nil, err
			}
			done[idx] = text
			outcomes = append(outcomes, outcome)
		}
		lines[i] = text
	}
	return strings.Join(lines, "\n"), outcomes, nil
}

func regionAt(regions []Region, i int) *Region {
	if i < 0 || i >= len(regions) {
		return nil
	}
	return &regions[i]
}

func (e *Engine) mergeRegion(idx int, t, d *Region) (string, RegionOutcome, error) {
	out := RegionOutcome{Index: idx}
	switch {
	case d != nil:
		out.Kind = d.Kind
	case t != nil:
		out.Kind = t.Kind
	default:
		return "", out, fmt.Errorf("merge: placeholder %d has no region on either side", idx)
	}

	if d != nil && d.Frozen {
		out.Decision = DecisionFrozen
		return d.render(d.Content), out, nil
	}

	if t != nil && d != nil && t.config == d.config {
		if sub := e.subs[d.config]; sub != nil {
			res, err := sub.mergeResult(t.Content, d.Content)
			if err != nil {
				return "", out, fmt.Errorf("region %d (%s): %w", idx, d.Kind, err)
			}
			out.Decision = DecisionRecursive
			e.log.Debug("merged region", "index", idx, "kind", d.Kind, "summary", res.Summary())
			return d.render(res.Content()), out, nil
		}
	}

	switch {
	case d != nil && t != nil && t.Content == d.Content:
		out.Decision = DecisionIdentical
		return d.render(d.Content), out, nil
	case d != nil:
		out.Decision = DecisionKeptDestination
		return d.render(d.Content), out, nil
	default:
		out.Decision = DecisionKeptTemplate
		return t.render(t.Content), out, nil
	}
}
