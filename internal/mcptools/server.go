// Package mcptools exposes the merge engine as Model Context Protocol tools.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the merge tools registered.
func NewMCPServer(svc *MergeService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "treemerge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "merge_documents",
		Description: "Merge a template document into a destination document. Matching units are paired by structural signature; conflicts follow the preference; freeze blocks in the destination are kept verbatim. Returns the merged text and per-decision counts.",
	}, svc.MergeDocuments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inject_section",
		Description: "Inject a template fragment into a destination relative to an anchor unit: before, after, as first or last child, or replacing the range up to a boundary.",
	}, svc.InjectSection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_formats",
		Description: "List the registered document formats with their file extensions, freeze comment styles and default freeze token.",
	}, svc.ListFormats)

	return server
}

// RunMCPServer serves the tools over streamable HTTP on addr until ctx is
// cancelled.
func RunMCPServer(ctx context.Context, svc *MergeService, addr string) error {
	server := NewMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio serves the tools on stdio, blocking until stdin is
// closed or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *MergeService) error {
	return NewMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
