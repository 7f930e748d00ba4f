package gates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/promptlab/internal/domain"
)

func TestNoPreamble(t *testing.T) {
	tests := []struct {
		name   string
		output string
		pass   bool
	}{
		{name: "plain_output", output: "This approach could be improved", pass: true},
		{name: "sure", output: "Sure, here is the rewrite.", pass: false},
		{name: "leading_whitespace_and_case", output: "   HERE IS the summary", pass: false},
		{name: "here_you_go", output: "Here you go: done", pass: false},
		{name: "as_requested", output: "As requested, the text.", pass: false},
		{name: "opener_inside_text", output: "The answer is sure to please.", pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := NoPreamble(tt.output, "")
			assert.Equal(t, tt.pass, ok)
			if tt.pass {
				assert.Empty(t, reason)
			} else {
				assert.Contains(t, reason, "preamble")
			}
		})
	}
}

func TestNoMarkdown(t *testing.T) {
	tests := []struct {
		name   string
		output string
		rule   string
	}{
		{name: "header", output: "# Title\nbody", rule: "header"},
		{name: "header_on_later_line", output: "intro\n## Section", rule: "header"},
		{name: "bold", output: "this is **very** nice", rule: "bold"},
		{name: "italic", output: "this is *quite* nice", rule: "italic"},
		{name: "code_fence", output: "```go\nx := 1\n```", rule: "code fence"},
		{name: "inline_code", output: "call `Run` first", rule: "inline code"},
		{name: "bullet", output: "items:\n- one\n- two", rule: "bullet list"},
		{name: "numbered", output: "steps:\n1. first", rule: "numbered list"},
		{name: "link", output: "see [docs](http://example.com)", rule: "link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := NoMarkdown(tt.output, "")
			assert.False(t, ok)
			assert.Equal(t, "Output contains markdown ("+tt.rule+")", reason)
		})
	}

	t.Run("plain_text_passes", func(t *testing.T) {
		ok, reason := NoMarkdown("Could you please take another look at this?", "")
		assert.True(t, ok)
		assert.Empty(t, reason)
	})
}

func TestNoSurroundingQuotes(t *testing.T) {
	tests := []struct {
		output string
		pass   bool
	}{
		{output: `"Please reconsider."`, pass: false},
		{output: `  'Please reconsider.'  `, pass: false},
		{output: `"Please reconsider.`, pass: true},
		{output: `He said "hi" to me`, pass: true},
		{output: `"mixed'`, pass: true},
	}

	for _, tt := range tests {
		ok, reason := NoSurroundingQuotes(tt.output, "")
		assert.Equal(t, tt.pass, ok, tt.output)
		if !tt.pass {
			assert.Equal(t, "Output is wrapped in quotes", reason)
		}
	}
}

func TestNoInputEcho(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		pass   bool
	}{
		{name: "short_output_skipped", output: "The cat sat", input: "The cat sat", pass: true},
		{name: "full_prefix", output: "The cat sat on the mat and then slept", input: "The cat sat on the mat", pass: false},
		{name: "case_insensitive_prefix", output: "THE CAT SAT ON THE MAT, purring softly", input: "the cat sat on the mat", pass: false},
		{name: "token_prefix", output: "the cat sat on a warm mat all day", input: "The cat   sat on", pass: false},
		{name: "two_token_input_not_token_checked", output: "hello   there, and good morning to you", input: "hello there", pass: true},
		{name: "continuation", output: "and then it curled up for a long nap", input: "The cat sat on the mat", pass: true},
		{name: "empty_input", output: "a sufficiently long continuation text", input: "   ", pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := NoInputEcho(tt.output, tt.input)
			assert.Equal(t, tt.pass, ok)
			if !tt.pass {
				assert.Equal(t, "Output repeats input text", reason)
			}
		})
	}
}

func TestWordLimit(t *testing.T) {
	gate := WordLimit(SummarizeMaxWords)

	ok, _ := gate(strings.Repeat("word ", 60), "")
	assert.True(t, ok)

	ok, reason := gate(strings.Repeat("word ", 61), "")
	assert.False(t, ok)
	assert.Equal(t, "Output exceeds 60 word limit (61 words)", reason)
}

func TestSentenceCount(t *testing.T) {
	gate := SentenceCount(ExplainMinSentences, ExplainMaxSentences)

	tests := []struct {
		name   string
		output string
		pass   bool
		reason string
	}{
		{name: "one", output: "Photosynthesis turns light into sugar.", pass: true},
		{name: "two", output: "It is a process. Plants use it!", pass: true},
		{name: "decimal_is_not_a_break", output: "Version 2.5 is out.", pass: true},
		{name: "three", output: "One. Two. Three.", reason: "Output exceeds 2 sentences (3)"},
		{name: "empty", output: "   ", reason: "Output has fewer than 1 sentences (0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := gate(tt.output, "")
			assert.Equal(t, tt.pass, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 2, CountSentences("Hi!! There?"))
	assert.Equal(t, 1, CountSentences("no terminal punctuation"))
	assert.Equal(t, 0, CountSentences(""))
}

func TestForTask(t *testing.T) {
	for _, task := range domain.AllTasks() {
		require.NotEmpty(t, ForTask(task), "task %s must have gates", task)
	}
	assert.Nil(t, ForTask(domain.TaskType("translate")))

	t.Run("rewrite_rejects_markdown_before_quotes", func(t *testing.T) {
		ok, reason := Check(ForTask(domain.TaskRewriteFriendly), `"**hey**"`, "")
		assert.False(t, ok)
		assert.Equal(t, "Output contains markdown (bold)", reason)
	})

	t.Run("complete_rejects_echo", func(t *testing.T) {
		ok, _ := Check(ForTask(domain.TaskComplete), "Once upon a time there was a fox", "once upon a time")
		assert.False(t, ok)
	})

	t.Run("explain_passes_short_answer", func(t *testing.T) {
		ok, reason := Check(ForTask(domain.TaskExplain), "Entropy measures disorder in a system.", "entropy")
		assert.True(t, ok)
		assert.Empty(t, reason)
	})
}
