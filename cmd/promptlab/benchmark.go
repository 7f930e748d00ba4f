package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/ahrav/promptlab/internal/benchmark"
	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/winners"
	"github.com/ahrav/promptlab/internal/workflow"
)

func newBenchmarkCmd(a *app) *cobra.Command {
	var (
		valSize int
		wait    bool
	)

	cmd := &cobra.Command{
		Use:   "benchmark [task...]",
		Short: "Benchmark the recorded winner against competitor prompts",
		Long: "Start one benchmark workflow per task (all tasks when none are\n" +
			"given) for the configured model. A running worker evaluates every\n" +
			"variant on the validation split and records the best as the winner.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseTasks(args)
			if err != nil {
				return err
			}
			if valSize <= 0 {
				valSize = a.cfg.Optimization.ValSize
			}

			c, err := a.dialTemporal()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			runs := make([]client.WorkflowRun, 0, len(tasks))
			for _, task := range tasks {
				req := benchmark.Request{Model: a.cfg.LLM.Model, Task: task, ValSize: valSize}
				run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
					ID:        workflowID(req.Model, task),
					TaskQueue: a.cfg.Temporal.TaskQueue,
				}, workflow.BenchmarkWorkflow, req)
				if err != nil {
					return fmt.Errorf("start benchmark for %s: %w", task, err)
				}
				a.logger.Info("benchmark started",
					"task", task,
					"workflow_id", run.GetID(),
					"run_id", run.GetRunID())
				runs = append(runs, run)
			}

			if !wait {
				for _, run := range runs {
					fmt.Fprintf(cmd.OutOrStdout(), "started %s\n", run.GetID())
				}
				return nil
			}

			for _, run := range runs {
				var res benchmark.Result
				if err := run.Get(ctx, &res); err != nil {
					return fmt.Errorf("benchmark %s: %w", run.GetID(), err)
				}
				printResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&valSize, "val-size", 0, "validation examples per variant (default: optimization.val_size)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the workflows and print their results")
	return cmd
}

func workflowID(model string, task domain.TaskType) string {
	return fmt.Sprintf("benchmark-%s-%s-%s", winners.NormalizeModelID(model), task, uuid.NewString())
}

func printResult(w io.Writer, res benchmark.Result) {
	fmt.Fprintf(w, "%s (%s)\n", res.Task, res.Model)
	for _, r := range res.Results {
		marker := ""
		if r.Index == res.Best.Index {
			marker = "  *"
		}
		fmt.Fprintf(w, "  variant_%d  score=%.3f  format=%.0f%%%s\n",
			r.Index, r.MeanScore, r.FormatPassRate*100, marker)
	}
}
