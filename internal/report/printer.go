package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dusk-indust/treemerge/internal/merge"
)

// Printer writes human-readable reports, colored when the writer is a
// terminal.
type Printer struct {
	w      io.Writer
	colors map[merge.Decision]*color.Color
	plus   *color.Color
	minus  *color.Color
	hunk   *color.Color
}

// NewPrinter returns a Printer for w. Color is enabled when w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	return newPrinter(w, IsTerminal(w))
}

// NewPlainPrinter returns a Printer that never colors.
func NewPlainPrinter(w io.Writer) *Printer {
	return newPrinter(w, false)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newPrinter(w io.Writer, on bool) *Printer {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &Printer{
		w: w,
		colors: map[merge.Decision]*color.Color{
			merge.DecisionIdentical:       mk(color.Faint),
			merge.DecisionKeptDestination: mk(color.Faint),
			merge.DecisionKeptTemplate:    mk(color.FgYellow),
			merge.DecisionReplaced:        mk(color.FgYellow),
			merge.DecisionAdded:           mk(color.FgGreen),
			merge.DecisionAppended:        mk(color.FgGreen),
			merge.DecisionMerged:          mk(color.FgMagenta),
			merge.DecisionRecursive:       mk(color.FgMagenta),
			merge.DecisionFrozen:          mk(color.FgCyan, color.Bold),
		},
		plus:  mk(color.FgGreen),
		minus: mk(color.FgRed),
		hunk:  mk(color.FgCyan),
	}
}

func (p *Printer) decision(d merge.Decision) string {
	if c, ok := p.colors[d]; ok {
		return c.Sprint(string(d))
	}
	return string(d)
}

// Summary prints one line: label followed by decision counts.
func (p *Printer) Summary(label string, res *merge.Result) error {
	stats := res.Stats()
	var parts []string
	for _, d := range merge.AllDecisions {
		if n := stats[d]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", p.decision(d), n))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "empty")
	}
	_, err := fmt.Fprintf(p.w, "%s: %s\n", label, strings.Join(parts, " "))
	return err
}

// Tree prints every fragment with its decision, nested fragments indented.
// Synthetic gap fragments are skipped.
func (p *Printer) Tree(res *merge.Result) error {
	var err error
	res.Walk(func(f merge.Fragment, depth int) {
		if err != nil || f.Synthetic {
			return
		}
		first, _, _ := strings.Cut(strings.TrimSpace(f.Content), "\n")
		if len(first) > 60 {
			first = first[:57] + "..."
		}
		kind := ""
		if f.Kind != "" {
			kind = " [" + f.Kind + "]"
		}
		_, err = fmt.Fprintf(p.w, "%s%s%s %s\n", strings.Repeat("  ", depth), p.decision(f.Decision), kind, first)
	})
	return err
}

// Diff prints a unified diff, coloring added and removed lines.
func (p *Printer) Diff(diff string) error {
	for _, l := range strings.SplitAfter(diff, "\n") {
		if l == "" {
			continue
		}
		var err error
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			_, err = io.WriteString(p.w, l)
		case strings.HasPrefix(l, "@@"):
			_, err = p.hunk.Fprint(p.w, l)
		case strings.HasPrefix(l, "+"):
			_, err = p.plus.Fprint(p.w, l)
		case strings.HasPrefix(l, "-"):
			_, err = p.minus.Fprint(p.w, l)
		default:
			_, err = io.WriteString(p.w, l)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
