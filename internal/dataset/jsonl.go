// Package dataset loads task examples from JSON Lines files laid out as
// <dir>/<task>_<split>.jsonl, one DatasetExample object per line.
package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
)

var (
	// ErrNotFound indicates no file exists for the requested task and split.
	ErrNotFound = errors.New("dataset not found")

	// ErrEmptyDataset indicates a dataset file without any examples.
	ErrEmptyDataset = errors.New("dataset is empty")
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 << 20

// JSONLLoader reads examples from a directory of JSONL files.
type JSONLLoader struct {
	dir    string
	logger *slog.Logger
}

// NewJSONLLoader returns a loader rooted at dir. A nil logger uses slog.Default.
func NewJSONLLoader(dir string, logger *slog.Logger) *JSONLLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLLoader{dir: dir, logger: logger.With("component", "dataset")}
}

// Path returns the file holding task's split.
func (l *JSONLLoader) Path(task domain.TaskType, split string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s.jsonl", task, split))
}

// Load returns up to size validated examples of task's split in file order.
// Records without a task_type inherit task; records for another task are
// rejected. A non-positive size returns every record.
func (l *JSONLLoader) Load(ctx context.Context, task domain.TaskType, split string, size int) ([]domain.DatasetExample, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTask, task)
	}

	path := l.Path(task, split)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var examples []domain.DatasetExample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for line := 1; sc.Scan(); line++ {
		if size > 0 && len(examples) >= size {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var ex domain.DatasetExample
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			return nil, fmt.Errorf("%s:%d: %w: %w", path, line, domain.ErrInvalidExample, err)
		}
		if ex.TaskType == "" {
			ex.TaskType = task
		}
		if ex.TaskType != task {
			return nil, fmt.Errorf("%s:%d: %w: task_type %q in %s dataset", path, line, domain.ErrInvalidExample, ex.TaskType, task)
		}
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		examples = append(examples, ex)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}

	l.logger.DebugContext(ctx, "dataset loaded", "task", string(task), "split", split, "examples", len(examples))
	return examples, nil
}

// Write stores examples as task's split under dir, replacing any existing file.
func Write(dir string, task domain.TaskType, split string, examples []domain.DatasetExample) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("encode example: %w", err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.jsonl", task, split))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
