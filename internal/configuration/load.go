package configuration

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "promptlab.yaml"

// Environment variables that override file settings.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvProvider        = "PROMPTLAB_PROVIDER"
	EnvModel           = "PROMPTLAB_MODEL"
	EnvBaseURL         = "PROMPTLAB_BASE_URL"
	EnvSeed            = "PROMPTLAB_SEED"
	EnvMaxMetricCalls  = "PROMPTLAB_MAX_METRIC_CALLS"
	EnvTaskLM          = "PROMPTLAB_TASK_LM"
	EnvReflectionLM    = "PROMPTLAB_REFLECTION_LM"
)

// SearchPaths returns the files tried, in order, when Load is given no path.
func SearchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "promptlab", "config.yaml"))
	}
	return paths
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the first of SearchPaths that exists when path is empty), then environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	file, err := resolve(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := decodeFile(file, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnv overlays non-empty environment values. The API key comes from the
// variable matching the final provider.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvProvider); ok {
		cfg.LLM.Provider = v
	}
	if v, ok := get(EnvModel); ok {
		cfg.LLM.Model = v
	}
	if v, ok := get(EnvBaseURL); ok {
		cfg.LLM.BaseURL = v
	}
	if v, ok := get(EnvTaskLM); ok {
		cfg.Optimization.TaskLM = v
	}
	if v, ok := get(EnvReflectionLM); ok {
		cfg.Optimization.ReflectionLM = v
	}

	for key, dst := range map[string]*int{
		EnvSeed:           &cfg.Optimization.Seed,
		EnvMaxMetricCalls: &cfg.Optimization.MaxMetricCalls,
	} {
		v, ok := get(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
	}

	keyVar := EnvOpenAIAPIKey
	if cfg.LLM.Provider == "anthropic" {
		keyVar = EnvAnthropicAPIKey
	}
	if v, ok := get(keyVar); ok {
		cfg.LLM.APIKey = v
	}
	return nil
}

// WriteTemplate writes the default configuration as YAML to path. An existing
// file is only replaced when overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s: %w", path, fs.ErrExist)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}
