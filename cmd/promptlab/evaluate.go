package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/promptlab/internal/candidate"
	"github.com/ahrav/promptlab/internal/optim"
	"github.com/ahrav/promptlab/internal/worker"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		valSize   int
		trainSize int
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "evaluate [task...]",
		Short: "Score each task's seed prompt on its training and validation splits",
		Long: "Evaluate the seed prompt of every named task (all tasks when none\n" +
			"are given) on its training and validation splits against the configured\n" +
			"model and write the prompts with their validation scores to\n" +
			"<output-dir>/<model>.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseTasks(args)
			if err != nil {
				return err
			}
			if valSize <= 0 {
				valSize = a.cfg.Optimization.ValSize
			}
			if trainSize < 0 {
				trainSize = a.cfg.Optimization.TrainSize
			}
			if outputDir == "" {
				outputDir = a.cfg.OutputDir
			}

			var reg *prometheus.Registry
			if a.cfg.Observability.MetricsEnabled {
				reg = prometheus.NewRegistry()
				stop := serveMetrics(a.cfg.Observability.MetricsAddr, reg, a.logger)
				defer stop()
			}

			completer, err := worker.InitializeCompleter(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer completer.Close()
			store, err := worker.InitializeWinnerStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var registerer prometheus.Registerer
			if reg != nil {
				registerer = reg
			}

			runner := optim.NewRunner(
				completer,
				worker.InitializeLoader(a.cfg, a.logger),
				candidate.NewSeeder(store, candidate.WithSeederLogger(a.logger)),
				optim.RunnerConfig{
					Model:          a.cfg.LLM.Model,
					Seed:           a.cfg.Optimization.Seed,
					ValSize:        valSize,
					TrainSize:      trainSize,
					MaxMetricCalls: a.cfg.Optimization.MaxMetricCalls,
					ReflectionLM:   a.cfg.Optimization.ReflectionLM,
					Concurrency:    a.cfg.Optimization.Concurrency,
					Constraints:    a.cfg.Prompts,
				},
				worker.InitializeMetrics(registerer),
				a.logger,
			)

			out, err := runner.Run(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			path, err := optim.WriteOutput(outputDir, out)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, task := range tasks {
				s := out.Meta.Scores[string(task)]
				fmt.Fprintf(w, "%-18s val_score=%.3f format_pass_rate=%.0f%%\n",
					task, s.ValScore, s.FormatPassRate*100)
			}
			fmt.Fprintf(w, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&valSize, "val-size", 0, "validation examples per task (default: optimization.val_size)")
	cmd.Flags().IntVar(&trainSize, "train-size", -1, "training examples per task, 0 skips the split (default: optimization.train_size)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (default: output_dir)")
	return cmd
}

// serveMetrics exposes reg on addr until the returned stop function runs.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
