// Package batch merges many template/destination file pairs concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/merge"
)

// Job is one file pair to merge.
type Job struct {
	Template    string
	Destination string

	// Output is where the merged text goes; the destination when empty.
	Output string

	// Format names the backend; resolved from the destination's extension
	// when empty.
	Format string
}

// Name is the label used in progress events.
func (j Job) Name() string {
	if j.Output != "" {
		return j.Output
	}
	return j.Destination
}

// Result holds the outcome of a single Job.
type Result struct {
	Job    Job
	Format string

	// Before is the destination text the merge started from.
	Before string
	Merge  *merge.Result

	Changed bool
	Written bool

	// Err is non-nil if the job failed.
	Err error
}

// Config configures a Runner.
type Config struct {
	Options merge.Options

	// Resolve picks a parser; backend.Resolve when nil.
	Resolve func(format, path string) (ast.Parser, error)

	// Concurrency bounds the number of jobs in flight; GOMAXPROCS when zero.
	Concurrency int

	// DryRun computes results without writing files.
	DryRun bool

	// FailFast cancels remaining jobs after the first failure.
	FailFast bool

	// OnProgress is called synchronously from each goroutine; it may be nil.
	OnProgress func(ProgressEvent)

	Logger *slog.Logger
}

// Runner merges jobs in parallel.
type Runner struct {
	cfg Config
	log *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Resolve == nil {
		cfg.Resolve = backend.Resolve
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = log
	}
	return &Runner{cfg: cfg, log: log.With("component", "batch")}
}

// Run merges every job, at most Concurrency at a time, emitting progress
// events for each. All results are returned in job order. With FailFast the
// first failure cancels the rest and is returned; otherwise every job runs
// and the returned error joins all job failures.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, job := range jobs {
		r.emit(ProgressEvent{Job: job.Name(), Status: ProgressPending})
	}

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Job: job, Err: err}
				return nil
			}
			r.emit(ProgressEvent{Job: job.Name(), Status: ProgressWorking})

			res := r.runOne(job)
			results[i] = res
			switch {
			case res.Err != nil:
				r.log.Debug("job failed", "job", job.Name(), "err", res.Err)
				r.emit(ProgressEvent{Job: job.Name(), Status: ProgressFailed, Message: res.Err.Error()})
				if r.cfg.FailFast {
					return res.Err
				}
			case res.Changed:
				r.emit(ProgressEvent{Job: job.Name(), Status: ProgressComplete, Message: res.Merge.Summary()})
			default:
				r.emit(ProgressEvent{Job: job.Name(), Status: ProgressUnchanged})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Job.Name(), res.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (r *Runner) runOne(job Job) Result {
	res := Result{Job: job}
	parser, err := r.cfg.Resolve(job.Format, job.Destination)
	if err != nil {
		res.Err = err
		return res
	}
	res.Format = parser.Format().Name

	tmpl, err := os.ReadFile(job.Template)
	if err != nil {
		res.Err = fmt.Errorf("read template: %w", err)
		return res
	}
	dest, err := os.ReadFile(job.Destination)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.log.Debug("destination missing, merging into empty document", "path", job.Destination)
	case err != nil:
		res.Err = fmt.Errorf("read destination: %w", err)
		return res
	}
	res.Before = string(dest)

	e, err := merge.New(parser, r.cfg.Options)
	if err != nil {
		res.Err = err
		return res
	}
	mr, err := e.MergeResult(string(tmpl), res.Before)
	if err != nil {
		res.Err = err
		return res
	}
	res.Merge = mr
	out := mr.Content()
	res.Changed = out != res.Before

	if r.cfg.DryRun || (!res.Changed && job.Output == "") {
		return res
	}
	if err := writeFile(job.Name(), job.Destination, out); err != nil {
		res.Err = err
		return res
	}
	res.Written = true
	return res
}

// writeFile writes content to path, keeping the mode of like when it exists.
func writeFile(path, like, content string) error {
	mode := fs.FileMode(0o644)
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

// emit sends a progress event if a callback is registered.
func (r *Runner) emit(ev ProgressEvent) {
	if r.cfg.OnProgress != nil {
		r.cfg.OnProgress(ev)
	}
}
