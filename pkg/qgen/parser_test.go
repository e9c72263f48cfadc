package qgen

import (
	"fmt"
	"testing"

	"ai-edulab-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedArray(t *testing.T) {
	raw := `[
		{"question_id": "qa-1", "question": "What is 2+2?", "type": "short_answer", "difficulty": "easy", "correct_answer": "4"},
		{"question_id": "qa-2", "question": "Is water wet?", "type": "true_false", "difficulty": "easy", "correct_answer": "true"},
		{"question_id": "qa-3", "question": "Explain gravity.", "type": "essay", "difficulty": "hard", "correct_answer": ""}
	]`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 3)
	assert.Equal(t, "qa-1", questions[0].QuestionId)
	assert.Equal(t, "qa-2", questions[1].QuestionId)
	assert.Equal(t, "qa-3", questions[2].QuestionId)
	assert.Equal(t, store.QuestionTypeEssay, questions[2].Type)
}

func TestParseFencedBlock(t *testing.T) {
	raw := "Here are your questions:\n```json\n" +
		`[{"question": "Define osmosis.", "correct_answer": "Diffusion of water"}]` +
		"\n```\nLet me know if you need more."

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 1)
	assert.Equal(t, "Define osmosis.", questions[0].Question)
}

func TestParseSingleObjectWrappedInList(t *testing.T) {
	raw := `{"question": "What is a cell?", "correct_answer": "The basic unit of life"}`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 1)
	assert.Equal(t, "q1", questions[0].QuestionId)
}

func TestParseRepairsLatexEscapes(t *testing.T) {
	raw := `[{"question": "Simplify \frac{1}{2} + \frac{1}{4}", "correct_answer": "\frac{3}{4}"}]`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 1)
	assert.Contains(t, questions[0].Question, `\frac{1}{2}`)
	assert.Contains(t, questions[0].CorrectAnswer, `\frac{3}{4}`)
}

func TestParseValidEscapesSurviveSanitizer(t *testing.T) {
	raw := `[{"question": "What does \"DNA\" stand for?\nAnswer briefly.", "correct_answer": "Deoxyribonucleic acid"}]`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 1)
	assert.Contains(t, questions[0].Question, `"DNA"`)
}

func TestParseBraceScanRecoversObjectsFromProse(t *testing.T) {
	raw := `Sure! Question one: {"question": "Name the powerhouse of the cell.", "correct_answer": "Mitochondria"}
and question two: {"question": "State Newton's first law.", "correct_answer": "Inertia"} and good luck!`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].QuestionId)
	assert.Equal(t, "q2", questions[1].QuestionId)
}

func TestParseSkipsUnparseableObjects(t *testing.T) {
	raw := `{"question": "Good one.", "correct_answer": "yes"} {broken: not json at all,,,} {"question": "Another good one.", "correct_answer": "also yes"}`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 2)
}

func TestParseGarbageYieldsEmptyList(t *testing.T) {
	cases := []string{
		"",
		"I could not generate any questions for this material.",
		"```json\nnot json\n```",
		"[[[",
	}

	for _, raw := range cases {
		questions := NewParser().ParseQuestions(raw)
		assert.Empty(t, questions, "input %q should yield no questions", raw)
	}
}

func TestParseFillsFieldDefaults(t *testing.T) {
	raw := `[{"question": "Pick one.", "options": ["a", "b"], "correct_answer": "a"}]`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 1)
	q := questions[0]
	assert.Equal(t, "q1", q.QuestionId)
	assert.Equal(t, store.QuestionTypeMultipleChoice, q.Type)
	assert.Equal(t, store.DifficultyMedium, q.Difficulty)
	assert.True(t, q.Valid)
}

func TestParseSynthesizesSequentialIds(t *testing.T) {
	raw := `[
		{"question": "One?", "correct_answer": "1"},
		{"question": "Two?", "correct_answer": "2"},
		{"question": "Three?", "correct_answer": "3"}
	]`

	questions := NewParser().ParseQuestions(raw)

	require.Len(t, questions, 3)
	seen := make(map[string]bool)
	for i, q := range questions {
		assert.Equal(t, fmt.Sprintf("q%d", i+1), q.QuestionId)
		assert.False(t, seen[q.QuestionId], "duplicate id %s", q.QuestionId)
		seen[q.QuestionId] = true
	}
}

func TestSanitizeEscapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "latex command doubled",
			in:   `"a \frac b"`,
			want: `"a \\frac b"`,
		},
		{
			name: "valid escapes untouched",
			in:   `"line\nbreak \"quoted\" é"`,
			want: `"line\nbreak \"quoted\" é"`,
		},
		{
			name: "trailing backslash doubled",
			in:   `"ends with \`,
			want: `"ends with \\`,
		},
		{
			name: "text outside strings untouched",
			in:   `{\x "key": "\x"}`,
			want: `{\x "key": "\\x"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeEscapes(tc.in))
		})
	}
}
