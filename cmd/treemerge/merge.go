package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dusk-indust/treemerge/internal/config"
	"github.com/dusk-indust/treemerge/internal/merge"
	"github.com/dusk-indust/treemerge/internal/report"
)

// outputFlags are shared by merge and inject.
type outputFlags struct {
	Output  string
	DryRun  bool
	Check   bool
	Diff    bool
	Tree    bool
	JSON    bool
	Patch   bool
	Mermaid bool
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.Output, "o", "", "write the result here instead of the destination (- for stdout)")
	fs.BoolVar(&o.DryRun, "dry-run", false, "compute the result without writing it")
	fs.BoolVar(&o.Check, "check", false, "write nothing and fail if the destination would change")
	fs.BoolVar(&o.Diff, "diff", false, "print a unified diff of the change")
	fs.BoolVar(&o.Tree, "tree", false, "print every fragment with its decision")
	fs.BoolVar(&o.JSON, "json", false, "print a JSON report of the merge")
	fs.BoolVar(&o.Patch, "patch", false, "print the JSON merge patch of the change (yaml and json documents)")
	fs.BoolVar(&o.Mermaid, "mermaid", false, "print a Mermaid diagram of the merge decisions")
}

// errChanged is returned by -check when the destination would change.
var errChanged = errors.New("destination is out of date")

func (a *app) runMerge(_ context.Context, args []string) error {
	fs, verbose := a.flagSet("merge", "TEMPLATE DESTINATION")
	var (
		dir         string
		format      string
		prefer      string
		freezeToken string
		add         bool
		byKind      = kindPrefs{}
		out         outputFlags
	)
	fs.StringVar(&dir, "config", ".", "directory holding treemerge.yml")
	fs.StringVar(&format, "format", "", "backend name; inferred from the destination's extension when empty")
	fs.StringVar(&prefer, "prefer", "", "side that wins on conflicts: template or destination")
	fs.Var(byKind, "prefer-kind", "per-kind preference as kind=side (repeatable)")
	fs.BoolVar(&add, "add", false, "add template units missing from the destination")
	fs.StringVar(&freezeToken, "freeze-token", "", "freeze marker token")
	out.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("merge needs a template and a destination")
	}
	log := a.setupLogger(*verbose)
	tmplPath, destPath := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts.Logger = log
	if prefer != "" {
		opts.Preference.Default = merge.Side(prefer)
	}
	if len(byKind) > 0 {
		if opts.Preference.ByKind == nil {
			opts.Preference.ByKind = map[string]merge.Side{}
		}
		for k, v := range byKind {
			opts.Preference.ByKind[k] = merge.Side(v)
		}
	}
	if add {
		opts.AddTemplateOnly = true
	}
	if freezeToken != "" {
		opts.FreezeToken = freezeToken
	}

	parser, err := cfg.ParserFor(format, destPath)
	if err != nil {
		return err
	}
	tmpl, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	before, err := readDestination(destPath)
	if err != nil {
		return err
	}

	e, err := merge.New(parser, opts)
	if err != nil {
		return err
	}
	res, err := e.MergeResult(string(tmpl), before)
	if err != nil {
		return err
	}
	log.Debug("merged", "template", tmplPath, "destination", destPath, "summary", res.Summary())

	return a.emit(res, emitInput{
		Template:    tmplPath,
		Destination: destPath,
		Format:      e.Format().Name,
		Before:      before,
	}, out)
}

// readDestination returns the destination text, or "" when the file does
// not exist yet.
func readDestination(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read destination: %w", err)
	}
	return string(data), nil
}

type emitInput struct {
	Template    string
	Destination string
	Format      string
	Before      string
}

// emit writes the merged text and prints the requested reports.
func (a *app) emit(res *merge.Result, in emitInput, out outputFlags) error {
	after := res.Content()
	changed := after != in.Before
	printer := report.NewPrinter(a.stdout)

	switch {
	case out.JSON:
		exp := report.Export(res, report.ExportOptions{
			Template:       in.Template,
			Destination:    in.Destination,
			Format:         in.Format,
			Before:         in.Before,
			IncludeContent: out.Output == "-",
		})
		if err := report.WriteJSON(a.stdout, exp); err != nil {
			return err
		}
	case out.Patch:
		patch, err := report.YAMLMergePatch(in.Before, after)
		if err != nil {
			return fmt.Errorf("merge patch: %w", err)
		}
		fmt.Fprintf(a.stdout, "%s\n", patch)
	case out.Mermaid:
		fmt.Fprint(a.stdout, report.Mermaid(res))
	default:
		if out.Tree {
			if err := printer.Tree(res); err != nil {
				return err
			}
		}
		if out.Diff {
			if err := printer.Diff(report.UnifiedDiff(filepath.ToSlash(in.Destination), in.Before, after, report.DefaultContext)); err != nil {
				return err
			}
		}
		if out.Output != "-" {
			if err := printer.Summary(in.Destination, res); err != nil {
				return err
			}
		}
	}

	switch {
	case out.Check:
		if changed {
			return fmt.Errorf("%s: %w", in.Destination, errChanged)
		}
		return nil
	case out.DryRun:
		return nil
	case out.Output == "-":
		if out.JSON || out.Patch || out.Mermaid {
			return nil
		}
		_, err := fmt.Fprint(a.stdout, after)
		return err
	case out.Output != "":
		return writeFile(out.Output, in.Destination, after)
	case changed:
		return writeFile(in.Destination, in.Destination, after)
	}
	return nil
}

// writeFile writes content to path, keeping the mode of like when it exists.
func writeFile(path, like, content string) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(like); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
