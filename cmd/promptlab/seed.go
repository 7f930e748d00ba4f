package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ahrav/promptlab/internal/candidate"
	"github.com/ahrav/promptlab/internal/worker"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <task>",
		Short: "Print the seed prompt for a task and the configured model",
		Long: "Print the prompt an optimization run would start from: the recorded\n" +
			"winner for the model when one exists, otherwise the built-in fallback.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseTasks(args)
			if err != nil {
				return err
			}

			store, err := worker.InitializeWinnerStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			seeder := candidate.NewSeeder(store, candidate.WithSeederLogger(a.logger))
			seed, err := seeder.Seed(cmd.Context(), tasks[0], a.cfg.LLM.Model)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(seed)
		},
	}
}
