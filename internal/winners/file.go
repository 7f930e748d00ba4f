package winners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/promptlab/internal/domain"
)

// competitorsFile is stored alongside the per-model documents and is never a model.
const competitorsFile = "competitors.json"

type modelDocument struct {
	Model string                  `json:"model"`
	Tasks map[string]taskDocument `json:"tasks"`
}

type taskDocument struct {
	System   string       `json:"system"`
	User     string       `json:"user"`
	Thinking bool         `json:"thinking,omitempty"`
	Meta     metaDocument `json:"meta"`
}

type metaDocument struct {
	Score          float64 `json:"score"`
	FormatPassRate float64 `json:"format_pass_rate"`
	BenchmarkedAt  string  `json:"benchmarked_at"`
}

// FileStore keeps one JSON document per model at <dir>/<normalized-model>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// Path returns the document path for model.
func (s *FileStore) Path(model string) string {
	return filepath.Join(s.dir, NormalizeModelID(model)+".json")
}

// Get implements Store. Tasks with unknown names in the document are ignored.
func (s *FileStore) Get(_ context.Context, model string, task domain.TaskType) (domain.Winner, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read(model)
	if err != nil || doc == nil {
		return domain.Winner{}, false, err
	}

	td, ok := doc.Tasks[task.String()]
	if !ok {
		return domain.Winner{}, false, nil
	}
	return td.winner(), true, nil
}

// Save implements Store. Other tasks in the model's document are preserved.
func (s *FileStore) Save(_ context.Context, model string, task domain.TaskType, w domain.Winner) error {
	if !task.Valid() {
		return fmt.Errorf("save winner: %w: %q", domain.ErrUnknownTask, task)
	}
	if err := validateWinner(&w); err != nil {
		return err
	}
	if w.BenchmarkedAt.IsZero() {
		w.BenchmarkedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(model)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &modelDocument{Model: model}
	}
	if doc.Tasks == nil {
		doc.Tasks = make(map[string]taskDocument)
	}
	doc.Tasks[task.String()] = taskDocument{
		System:   w.SystemPrompt,
		User:     w.UserPrompt,
		Thinking: w.Thinking,
		Meta: metaDocument{
			Score:          w.Score,
			FormatPassRate: w.FormatPassRate,
			BenchmarkedAt:  w.BenchmarkedAt.Format(time.DateOnly),
		},
	}

	return s.write(model, doc)
}

// ListModels implements Store.
func (s *FileStore) ListModels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}

	var models []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name == competitorsFile {
			continue
		}
		models = append(models, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(models)
	return models, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// read returns nil without error when the model has no document.
func (s *FileStore) read(model string) (*modelDocument, error) {
	data, err := os.ReadFile(s.Path(model))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read winners for %s: %w", model, err)
	}

	var doc modelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode winners for %s: %w", model, err)
	}
	for name := range doc.Tasks {
		if !domain.TaskType(name).Valid() {
			delete(doc.Tasks, name)
		}
	}
	return &doc, nil
}

// write replaces the model's document atomically via a temp file and rename.
func (s *FileStore) write(model string, doc *modelDocument) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create winners directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode winners for %s: %w", model, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".winners-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write winners for %s: %w", model, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(model)); err != nil {
		return fmt.Errorf("replace winners for %s: %w", model, err)
	}
	return nil
}

func (t taskDocument) winner() domain.Winner {
	return domain.Winner{
		SystemPrompt:   t.System,
		UserPrompt:     t.User,
		Score:          t.Meta.Score,
		FormatPassRate: t.Meta.FormatPassRate,
		BenchmarkedAt:  parseBenchmarkedAt(t.Meta.BenchmarkedAt),
		Thinking:       t.Thinking,
	}
}

// parseBenchmarkedAt accepts date-only and RFC 3339 timestamps. Unparseable
// values yield the zero time.
func parseBenchmarkedAt(s string) time.Time {
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
