package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xaxixak/oracle-v2/internal/toolserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func runMCP(ctx context.Context) error {
	deps, err := initDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	tracer := deps.provider.Tracer()
	svc := initServices(deps, tracer)

	srv := toolserver.NewServer(version, toolserver.Services{
		Retrieval: svc.retrieval,
		Consult:   svc.consult,
		Learn:     svc.learn,
		Trace:     svc.trace,
		Forum:     svc.forum,
		Decisions: svc.decisions,
		Dashboard: svc.dashboard,
		Store:     deps.store,
	})

	return srv.Run(ctx)
}
