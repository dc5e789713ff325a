package main

import (
	"context"

	"github.com/dusk-indust/treemerge/internal/config"
	"github.com/dusk-indust/treemerge/internal/mcptools"
)

func (a *app) runServeMCP(ctx context.Context, args []string) error {
	fs, verbose := a.flagSet("serve-mcp", "")
	var dir, addr string
	fs.StringVar(&dir, "config", ".", "directory holding treemerge.yml; its settings are the tool defaults")
	fs.StringVar(&addr, "http", "", "serve streamable HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := a.setupLogger(*verbose)

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts.Logger = log

	svc := mcptools.NewMergeService(opts, cfg.ParserFor, log)
	if addr != "" {
		log.Info("serving MCP over HTTP", "addr", addr)
		return mcptools.RunMCPServer(ctx, svc, addr)
	}
	return mcptools.RunMCPServerStdio(ctx, svc)
}
