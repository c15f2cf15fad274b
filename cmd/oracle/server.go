package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xaxixak/oracle-v2/internal/httpapi"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	deps, err := initDependencies(ctx)
	if err != nil {
		return err
	}
	// httpapi.Run closes the store itself as part of graceful shutdown.
	defer deps.closeProvider()

	tracer := deps.provider.Tracer()
	svc := initServices(deps, tracer)

	cfg := httpapi.Config{
		Port:     deps.cfg.Port,
		DataDir:  deps.cfg.DataDir,
		RepoRoot: deps.cfg.RepoRoot,
		Version:  version,
	}
	httpSvc := httpapi.Services{
		Retrieval: svc.retrieval,
		Consult:   svc.consult,
		Learn:     svc.learn,
		Trace:     svc.trace,
		Forum:     svc.forum,
		Decisions: svc.decisions,
		Dashboard: svc.dashboard,
		Store:     deps.store,
	}

	return httpapi.Run(ctx, cfg, httpSvc, deps.log)
}
