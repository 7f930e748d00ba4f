package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/promptlab/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rewrite_friendly_val.jsonl", `{"task_type":"rewrite_friendly","input_text":"this is dumb","reference":"this could be improved"}

{"input_text":"you never listen"}
{"task_type":"rewrite_friendly","input_text":"fix it now","reference":""}
`)

	l := NewJSONLLoader(dir, nil)

	all, err := l.Load(context.Background(), domain.TaskRewriteFriendly, "val", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "this could be improved", all[0].ReferenceText())
	assert.Equal(t, domain.TaskRewriteFriendly, all[1].TaskType)
	assert.False(t, all[1].HasReference())
	assert.False(t, all[2].HasReference())

	capped, err := l.Load(context.Background(), domain.TaskRewriteFriendly, "val", 2)
	require.NoError(t, err)
	assert.Equal(t, all[:2], capped)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "explain_val.jsonl", "\n\n")
	writeFile(t, dir, "summarize_val.jsonl", `{"task_type":"explain","input_text":"x"}`+"\n")
	writeFile(t, dir, "complete_val.jsonl", "{not json}\n")

	l := NewJSONLLoader(dir, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		task    domain.TaskType
		split   string
		wantErr error
	}{
		{name: "missing_file", task: domain.TaskExplain, split: "train", wantErr: ErrNotFound},
		{name: "empty_file", task: domain.TaskExplain, split: "val", wantErr: ErrEmptyDataset},
		{name: "wrong_task", task: domain.TaskSummarize, split: "val", wantErr: domain.ErrInvalidExample},
		{name: "bad_json", task: domain.TaskComplete, split: "val", wantErr: domain.ErrInvalidExample},
		{name: "unknown_task", task: "translate", split: "val", wantErr: domain.ErrUnknownTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(ctx, tt.task, tt.split, 10)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "explain_val.jsonl", `{"input_text":"entropy"}`+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJSONLLoader(dir, nil).Load(ctx, domain.TaskExplain, "val", 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	examples := []domain.DatasetExample{
		domain.NewExample(domain.TaskSummarize, "A long article.", "Short."),
		domain.NewUnreferencedExample(domain.TaskSummarize, "Another article."),
	}
	require.NoError(t, Write(dir, domain.TaskSummarize, "train", examples))

	got, err := NewJSONLLoader(dir, nil).Load(context.Background(), domain.TaskSummarize, "train", 5)
	require.NoError(t, err)
	assert.Equal(t, examples, got)
}
