package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/promptlab/internal/worker"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that executes benchmark workflows",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var reg prometheus.Registerer
			if a.cfg.Observability.MetricsEnabled {
				r := prometheus.NewRegistry()
				stop := serveMetrics(a.cfg.Observability.MetricsAddr, r, a.logger)
				defer stop()
				reg = r
			}

			deps, err := worker.NewDependencies(a.cfg, a.logger, reg)
			if err != nil {
				return err
			}
			defer deps.Close()

			c, err := a.dialTemporal()
			if err != nil {
				return err
			}
			defer c.Close()

			w := sdkworker.New(c, a.cfg.Temporal.TaskQueue, sdkworker.Options{})
			worker.RegisterAll(w, deps)

			a.logger.Info("worker started",
				"task_queue", a.cfg.Temporal.TaskQueue,
				"provider", a.cfg.LLM.Provider,
				"model", a.cfg.LLM.Model)
			return w.Run(sdkworker.InterruptCh())
		},
	}
}
