package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opal-project/opalrunner/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for agent integration",
	Long:  "Runs opalrun as an MCP (Model Context Protocol) server over stdio, exposing a single opal_run tool.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv := mcpserver.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "opalrun MCP server running on stdio")
	return srv.Run(ctx)
}
