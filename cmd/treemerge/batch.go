package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dusk-indust/treemerge/internal/batch"
	"github.com/dusk-indust/treemerge/internal/config"
	"github.com/dusk-indust/treemerge/internal/report"
)

func (a *app) runBatch(ctx context.Context, args []string) error {
	fs, verbose := a.flagSet("batch", "")
	var (
		dir         string
		concurrency int
		dryRun      bool
		check       bool
		failFast    bool
		diff        bool
		quiet       bool
	)
	fs.StringVar(&dir, "config", ".", "directory holding treemerge.yml")
	fs.IntVar(&concurrency, "j", 0, "files merged in parallel (default: config, then GOMAXPROCS)")
	fs.BoolVar(&dryRun, "dry-run", false, "compute results without writing files")
	fs.BoolVar(&check, "check", false, "write nothing and fail if any destination would change")
	fs.BoolVar(&failFast, "fail-fast", false, "stop at the first failing pair")
	fs.BoolVar(&diff, "diff", false, "print a unified diff per changed file")
	fs.BoolVar(&quiet, "quiet", false, "suppress progress lines")

	if err := fs.Parse(args); err != nil {
		return err
	}
	log := a.setupLogger(*verbose)

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if len(cfg.Pairs) == 0 {
		return fmt.Errorf("no pairs configured in %s", filepath.Join(dir, config.FileNames[0]))
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	jobs := make([]batch.Job, len(cfg.Pairs))
	for i, p := range cfg.Pairs {
		jobs[i] = batch.Job{Template: p.Template, Destination: p.Destination, Output: p.Output, Format: p.Format}
	}

	progress := batch.NewProgressReporter()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress.Subscribe() {
			if !quiet && ev.Status != batch.ProgressPending {
				fmt.Fprintln(a.stderr, batch.FormatProgress(ev))
			}
		}
	}()

	runner := batch.NewRunner(batch.Config{
		Options:     opts,
		Resolve:     cfg.ParserFor,
		Concurrency: concurrency,
		DryRun:      dryRun || check,
		FailFast:    failFast,
		OnProgress:  progress.Emit,
		Logger:      log,
	})
	results, runErr := runner.Run(ctx, jobs)
	progress.Close()
	<-done

	printer := report.NewPrinter(a.stdout)
	changed := 0
	for _, res := range results {
		if res.Err != nil || res.Merge == nil {
			continue
		}
		if err := printer.Summary(res.Job.Name(), res.Merge); err != nil {
			return err
		}
		if !res.Changed {
			continue
		}
		changed++
		if diff {
			d := report.UnifiedDiff(filepath.ToSlash(res.Job.Name()), res.Before, res.Merge.Content(), report.DefaultContext)
			if err := printer.Diff(d); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	if check && changed > 0 {
		return fmt.Errorf("%d of %d files: %w", changed, len(results), errChanged)
	}
	return nil
}

// isCheckFailure reports whether err came from -check.
func isCheckFailure(err error) bool {
	return errors.Is(err, errChanged)
}
