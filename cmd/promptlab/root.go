package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/promptlab/internal/configuration"
	"github.com/ahrav/promptlab/internal/domain"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	provider   string
	model      string
	logLevel   string

	cfg    *configuration.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "promptlab",
		Short:         "Evaluate and benchmark prompt templates for small language models",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: ./promptlab.yaml or ~/.config/promptlab/config.yaml)")
	flags.StringVar(&a.provider, "provider", "", "override llm.provider")
	flags.StringVar(&a.model, "model", "", "override llm.model")
	flags.StringVar(&a.logLevel, "log-level", "", "override observability.log_level")

	root.AddCommand(
		newEvaluateCmd(a),
		newSeedCmd(a),
		newBenchmarkCmd(a),
		newWorkerCmd(a),
		newModelsCmd(a),
		newInitCmd(),
	)
	return root
}

// load reads configuration, applies flag overrides and installs the logger.
func (a *app) load(logOut io.Writer) error {
	cfg, err := configuration.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.provider != "" {
		cfg.LLM.Provider = a.provider
	}
	if a.model != "" {
		cfg.LLM.Model = a.model
	}
	if a.logLevel != "" {
		cfg.Observability.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(logOut, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLogger builds a slog logger writing JSON or text records at level.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// parseTasks maps task names to task types. No names selects every task.
func parseTasks(names []string) ([]domain.TaskType, error) {
	if len(names) == 0 {
		return domain.AllTasks(), nil
	}
	tasks := make([]domain.TaskType, 0, len(names))
	for _, name := range names {
		task, err := domain.ParseTaskType(name)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
