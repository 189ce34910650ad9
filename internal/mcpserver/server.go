// Package mcpserver exposes the runner as a single MCP tool over stdio:
// mcp-sdk server construction, a stdio transport, and one struct-tagged
// input/output type for the tool.
package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server with the opal_run tool.
type Server struct {
	mcpServer *mcpsdk.Server
}

// New creates an MCP server exposing opal_run.
func New() *Server {
	s := &Server{}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "opalrun",
			Version: "0.1.0",
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "opal_run",
		Description: "Run an analyst-supplied map algorithm against a directory of subject CDR files, scale each result by its subject's weight, and either return the scaled partials (dev mode) or post them to the aggregation service named in params.",
	}, s.handleRun)
}
