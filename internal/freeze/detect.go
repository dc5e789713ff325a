package freeze

import (
	"fmt"
	"regexp"
	"strings"
)

// MarkerKind distinguishes freeze from unfreeze markers.
type MarkerKind string

const (
	MarkerStart MarkerKind = "freeze"
	MarkerEnd   MarkerKind = "unfreeze"
)

// Marker is one freeze or unfreeze comment line.
type Marker struct {
	Line   int        `json:"line"`
	Kind   MarkerKind `json:"kind"`
	Style  string     `json:"style"`
	Reason string     `json:"reason,omitempty"`
}

// Span is a detected freeze block. StartLine and EndLine are 1-based and
// include the marker lines themselves.
type Span struct {
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Reason    string `json:"reason,omitempty"`
	Style     string `json:"style"`
}

// StructureError reports unbalanced or nested freeze markers.
type StructureError struct {
	Problem   string
	StartLine int
	EndLine   int
	Unclosed  []Marker
}

func (e *StructureError) Error() string {
	msg := fmt.Sprintf("freeze: %s (lines %d-%d)", e.Problem, e.StartLine, e.EndLine)
	if len(e.Unclosed) > 0 {
		lines := make([]string, len(e.Unclosed))
		for i, m := range e.Unclosed {
			lines[i] = fmt.Sprintf("%d", m.Line)
		}
		msg += "; unclosed freeze at line " + strings.Join(lines, ", ")
	}
	return msg
}

type matcher struct {
	style Style
	re    *regexp.Regexp
}

func compile(token string, styles []Style) []matcher {
	tok := regexp.QuoteMeta(token)
	out := make([]matcher, 0, len(styles))
	for _, s := range styles {
		var pattern string
		if s.IsBlock() {
			pattern = `^\s*` + regexp.QuoteMeta(s.Open) + `\s*` + tok + `:(freeze|unfreeze)\b(.*?)\s*` +
				regexp.QuoteMeta(s.Close) + `\s*$`
		} else {
			pattern = `^\s*(?:` + regexp.QuoteMeta(s.Line) + `)+\s*` + tok + `:(freeze|unfreeze)\b(.*)$`
		}
		out = append(out, matcher{style: s, re: regexp.MustCompile(pattern)})
	}
	return out
}

// Scan returns every marker found in lines, in line order.
func Scan(lines []string, token string, styles []Style) []Marker {
	if token == "" || len(styles) == 0 {
		return nil
	}
	matchers := compile(token, styles)
	var markers []Marker
	for i, ln := range lines {
		for _, m := range matchers {
			sub := m.re.FindStringSubmatch(ln)
			if sub == nil {
				continue
			}
			mk := Marker{Line: i + 1, Kind: MarkerKind(sub[1]), Style: m.style.Name}
			if mk.Kind == MarkerStart {
				mk.Reason = strings.TrimSpace(sub[2])
			}
			markers = append(markers, mk)
			break
		}
	}
	return markers
}

// Detect pairs freeze markers in a single linear pass. A freeze marker
// inside an open block, an unfreeze with no open block, or a block left open
// at the end of input is a *StructureError.
func Detect(lines []string, token string, styles []Style) ([]Span, error) {
	var (
		spans []Span
		open  *Marker
	)
	for _, mk := range Scan(lines, token, styles) {
		switch mk.Kind {
		case MarkerStart:
			if open != nil {
				return nil, &StructureError{
					Problem:   "nested freeze marker",
					StartLine: open.Line,
					EndLine:   mk.Line,
					Unclosed:  []Marker{*open, mk},
				}
			}
			m := mk
			open = &m
		case MarkerEnd:
			if open == nil {
				return nil, &StructureError{
					Problem:   "unfreeze marker without matching freeze",
					StartLine: mk.Line,
					EndLine:   mk.Line,
				}
			}
			spans = append(spans, Span{
				StartLine: open.Line,
				EndLine:   mk.Line,
				Reason:    open.Reason,
				Style:     open.Style,
			})
			open = nil
		}
	}
	if open != nil {
		return nil, &StructureError{
			Problem:   "freeze marker without matching unfreeze",
			StartLine: open.Line,
			EndLine:   len(lines),
			Unclosed:  []Marker{*open},
		}
	}
	return spans, nil
}
