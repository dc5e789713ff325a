package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: treemerge <command> [flags] [args]

commands:
  merge     merge a template file into a destination file
  inject    inject a recipe's fragment into a destination file
  batch     merge every file pair listed in treemerge.yml
  formats   list registered formats
  init      write a starter treemerge.yml and register the MCP server
  serve-mcp run as an MCP server (stdio, or HTTP with -http)
  version   print version and exit

Run 'treemerge <command> -h' for command flags.
`

// app carries the process streams so commands are testable.
type app struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if isCheckFailure(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return flag.ErrHelp
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "merge":
		return a.runMerge(ctx, rest)
	case "inject":
		return a.runInject(ctx, rest)
	case "batch":
		return a.runBatch(ctx, rest)
	case "formats":
		return a.runFormats(rest)
	case "init":
		return a.runInit(rest)
	case "serve-mcp":
		return a.runServeMCP(ctx, rest)
	case "version", "-version", "--version":
		fmt.Fprintln(a.stdout, version)
		return nil
	case "help", "-h", "-help", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	default:
		fmt.Fprint(a.stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// flagSet returns a FlagSet writing its usage to stderr, with the -verbose
// flag every command shares.
func (a *app) flagSet(name, args string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet("treemerge "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	verbose := fs.Bool("verbose", false, "enable debug logging on stderr")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "usage: treemerge %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs, verbose
}

// setupLogger installs the process logger once flags are parsed.
func (a *app) setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return a.log
}

// kindPrefs collects repeated -prefer-kind kind=side flags.
type kindPrefs map[string]string

func (k kindPrefs) String() string {
	parts := make([]string, 0, len(k))
	for kind, side := range k {
		parts = append(parts, kind+"="+side)
	}
	return strings.Join(parts, ",")
}

func (k kindPrefs) Set(v string) error {
	kind, side, ok := strings.Cut(v, "=")
	if !ok || kind == "" || side == "" {
		return fmt.Errorf("want kind=side, got %q", v)
	}
	k[kind] = side
	return nil
}
