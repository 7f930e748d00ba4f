package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/worker"
)

func newModelsCmd(a *app) *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models with recorded winners",
		Long: "List the normalized ids of every model that has a recorded winner.\n" +
			"With --details, also print each task's winning score and benchmark date.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := worker.InitializeWinnerStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			models, err := store.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, model := range models {
				fmt.Fprintln(w, model)
				if !details {
					continue
				}
				for _, task := range domain.AllTasks() {
					win, found, err := store.Get(cmd.Context(), model, task)
					if err != nil {
						return err
					}
					if !found {
						continue
					}
					fmt.Fprintf(w, "  %-18s score=%.3f format_pass_rate=%.0f%% benchmarked=%s\n",
						task, win.Score, win.FormatPassRate*100, win.BenchmarkedAt.Format("2006-01-02"))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&details, "details", "d", false, "print each task's winner")
	return cmd
}
