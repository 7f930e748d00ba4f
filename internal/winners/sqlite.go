package winners

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ahrav/promptlab/internal/domain"
)

// SQLiteStore keeps winners in a single SQLite table keyed by
// (normalized model, task).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at dbPath and ensures the
// schema exists. The parent directory is created if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS winners (
		model TEXT NOT NULL,
		task TEXT NOT NULL,
		model_id TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		user_prompt TEXT NOT NULL,
		thinking INTEGER NOT NULL DEFAULT 0,
		score REAL NOT NULL,
		format_pass_rate REAL NOT NULL,
		benchmarked_at TEXT NOT NULL,
		PRIMARY KEY (model, task)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, model string, task domain.TaskType) (domain.Winner, bool, error) {
	const query = `
	SELECT system_prompt, user_prompt, thinking, score, format_pass_rate, benchmarked_at
	FROM winners
	WHERE model = ? AND task = ?
	`

	var (
		w             domain.Winner
		benchmarkedAt string
	)
	err := s.db.QueryRowContext(ctx, query, NormalizeModelID(model), task.String()).Scan(
		&w.SystemPrompt,
		&w.UserPrompt,
		&w.Thinking,
		&w.Score,
		&w.FormatPassRate,
		&benchmarkedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Winner{}, false, nil
	}
	if err != nil {
		return domain.Winner{}, false, fmt.Errorf("load winner: %w", err)
	}

	w.BenchmarkedAt = parseBenchmarkedAt(benchmarkedAt)
	return w, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, model string, task domain.TaskType, w domain.Winner) error {
	if !task.Valid() {
		return fmt.Errorf("save winner: %w: %q", domain.ErrUnknownTask, task)
	}
	if err := validateWinner(&w); err != nil {
		return err
	}
	if w.BenchmarkedAt.IsZero() {
		w.BenchmarkedAt = s.now()
	}

	const query = `
	INSERT INTO winners (model, task, model_id, system_prompt, user_prompt, thinking, score, format_pass_rate, benchmarked_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(model, task) DO UPDATE SET
		model_id = excluded.model_id,
		system_prompt = excluded.system_prompt,
		user_prompt = excluded.user_prompt,
		thinking = excluded.thinking,
		score = excluded.score,
		format_pass_rate = excluded.format_pass_rate,
		benchmarked_at = excluded.benchmarked_at
	`

	_, err := s.db.ExecContext(ctx, query,
		NormalizeModelID(model),
		task.String(),
		model,
		w.SystemPrompt,
		w.UserPrompt,
		w.Thinking,
		w.Score,
		w.FormatPassRate,
		w.BenchmarkedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save winner: %w", err)
	}
	return nil
}

// ListModels implements Store.
func (s *SQLiteStore) ListModels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT model FROM winners ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
