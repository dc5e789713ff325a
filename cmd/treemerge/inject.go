package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/treemerge/internal/config"
	"github.com/dusk-indust/treemerge/internal/merge"
	"github.com/dusk-indust/treemerge/internal/recipe"
)

func (a *app) runInject(_ context.Context, args []string) error {
	fs, verbose := a.flagSet("inject", "-recipe FILE DESTINATION")
	var (
		dir        string
		recipePath string
		format     string
		out        outputFlags
	)
	fs.StringVar(&dir, "config", ".", "directory holding treemerge.yml")
	fs.StringVar(&recipePath, "recipe", "", "injection recipe (yaml)")
	fs.StringVar(&format, "format", "", "backend name; the recipe's format, then the destination's extension, when empty")
	out.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if recipePath == "" || fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("inject needs -recipe and a destination")
	}
	log := a.setupLogger(*verbose)
	destPath := fs.Arg(0)

	r, err := recipe.Load(recipePath)
	if err != nil {
		return err
	}
	if format == "" {
		format = r.Format
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	parser, err := cfg.ParserFor(format, destPath)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	ropts, err := r.Options(parser.Format().Name)
	if err != nil {
		return err
	}
	if r.Preference != "" {
		opts.Preference = ropts.Preference
	}
	if ropts.AddFilter != nil {
		opts.AddFilter = ropts.AddFilter
	}
	opts.Logger = log

	inj, err := r.Injection()
	if err != nil {
		return err
	}
	fragment, err := r.Content()
	if err != nil {
		return err
	}
	before, err := readDestination(destPath)
	if err != nil {
		return err
	}

	e, err := merge.New(parser, opts)
	if err != nil {
		return err
	}
	res, err := e.Inject(fragment, before, inj)
	if err != nil {
		return err
	}
	log.Debug("injected", "recipe", recipePath, "destination", destPath, "summary", res.Summary())

	return a.emit(res, emitInput{
		Template:    recipePath,
		Destination: destPath,
		Format:      e.Format().Name,
		Before:      before,
	}, out)
}
