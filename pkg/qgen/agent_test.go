package qgen

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	generate func(prompt string) (string, error)
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return f.generate(last)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.generate(prompt)
}

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []events.EventKind
}

func (s *recordingSink) Emit(kind events.EventKind, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, kind)
}

func (s *recordingSink) count(kind events.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.events {
		if k == kind {
			n++
		}
	}
	return n
}

const threeQuestionArray = `[
	{"question": "What is photosynthesis?", "correct_answer": "Light to chemical energy", "type": "short_answer"},
	{"question": "Which organelle hosts it?", "options": ["Mitochondria", "Chloroplast"], "correct_answer": "Chloroplast"},
	{"question": "Is oxygen a byproduct?", "correct_answer": "true", "type": "true_false"}
]`

// scriptedLLM answers by prompt shape so one fake serves every node.
func scriptedLLM(reflection string) *fakeLLM {
	return &fakeLLM{generate: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Create exactly"):
			return "```json\n" + threeQuestionArray + "\n```", nil
		case strings.Contains(prompt, "Revise the questions above"):
			return threeQuestionArray, nil
		case strings.Contains(prompt, "Rewrite this single question"):
			return `[{"question": "Rewritten question text?", "correct_answer": "yes"}]`, nil
		case strings.Contains(prompt, "new theme"):
			return threeQuestionArray, nil
		case strings.Contains(prompt, "question set above"):
			return "Question 2 tests recall of the chloroplast.", nil
		case strings.Contains(prompt, "Suggest up to 3"):
			return `["Make question 1 harder", "Add an essay question"]`, nil
		case strings.Contains(prompt, "quality reviewer"):
			return reflection, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testState(cfg store.PipelineConfig) *store.State {
	state := store.NewState(store.Identity{
		SessionId: uuid.New(),
		UserId:    uuid.New(),
		TenantId:  uuid.New(),
	}, cfg)
	state.OriginalInput = "photosynthesis basics"
	return state
}

func existingArtifact() *store.Artifact {
	return &store.Artifact{
		Theme: "photosynthesis basics",
		Questions: []store.GeneratedQuestion{
			{QuestionId: "q1", Question: "Old question one?", Type: store.QuestionTypeShortAnswer, Difficulty: store.DifficultyEasy, CorrectAnswer: "one"},
			{QuestionId: "q2", Question: "Old question two?", Type: store.QuestionTypeShortAnswer, Difficulty: store.DifficultyEasy, CorrectAnswer: "two"},
		},
	}
}

func TestRouterSelectsOperation(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(state *store.State)
		want    string
	}{
		{
			name:    "no artifact generates",
			prepare: func(state *store.State) {},
			want:    store.OpGenerate,
		},
		{
			name: "artifact without intent updates",
			prepare: func(state *store.State) {
				state.Artifact = existingArtifact()
			},
			want: store.OpUpdate,
		},
		{
			name: "target question rewrites",
			prepare: func(state *store.State) {
				state.Artifact = existingArtifact()
				state.TargetQuestionId = "q2"
			},
			want: store.OpRewrite,
		},
		{
			name: "new theme wins over target question",
			prepare: func(state *store.State) {
				state.Artifact = existingArtifact()
				state.TargetQuestionId = "q2"
				state.NewTheme = "cellular respiration"
			},
			want: store.OpRewriteTheme,
		},
		{
			name: "user query responds",
			prepare: func(state *store.State) {
				state.Artifact = existingArtifact()
				state.UserQuery = "which question is hardest?"
			},
			want: store.OpRespond,
		},
		{
			name: "user query without artifact still generates",
			prepare: func(state *store.State) {
				state.UserQuery = "which question is hardest?"
			},
			want: store.OpGenerate,
		},
	}

	router := NewRouter(testLogger())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := testState(store.DefaultPipelineConfig())
			tc.prepare(state)

			router.Apply(context.Background(), state)

			assert.Equal(t, tc.want, state.RouteOp)
		})
	}
}

func TestGeneratePathProducesQuestions(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.QuestionCount = 3

	sink := &recordingSink{}
	agent, err := NewAgent(scriptedLLM(""), sink, testLogger())
	require.NoError(t, err)

	final, err := agent.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	require.Len(t, final.Questions, 3)

	seen := make(map[string]bool)
	for _, q := range final.Questions {
		assert.False(t, seen[q.QuestionId], "duplicate question id %s", q.QuestionId)
		seen[q.QuestionId] = true
	}
	assert.Equal(t, "q1", final.Questions[0].QuestionId)
	assert.Equal(t, "q3", final.Questions[2].QuestionId)

	assert.Equal(t, 3, sink.count(events.KindQuestionComplete))
	assert.Equal(t, 1, sink.count(events.KindDone))
	assert.NotEmpty(t, final.FollowupSuggestions)
	assert.NotNil(t, final.CompletedAt)

	// Scratch fields are stripped at the terminal
	assert.Nil(t, final.Materials)
	assert.Empty(t, final.RouteOp)
	assert.Empty(t, final.NextAction)
}

func TestUpdatePathReplacesArtifact(t *testing.T) {
	agent, err := NewAgent(scriptedLLM(""), events.NopSink{}, testLogger())
	require.NoError(t, err)

	state := testState(store.DefaultPipelineConfig())
	state.Artifact = existingArtifact()
	state.OriginalInput = "make them harder"

	final, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	require.Len(t, final.Questions, 3)
	assert.Equal(t, "What is photosynthesis?", final.Questions[0].Question)
}

func TestRewritePreservesQuestionId(t *testing.T) {
	agent, err := NewAgent(scriptedLLM(""), events.NopSink{}, testLogger())
	require.NoError(t, err)

	state := testState(store.DefaultPipelineConfig())
	state.Artifact = existingArtifact()
	state.TargetQuestionId = "q2"
	state.OriginalInput = "rephrase it"

	final, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	require.Len(t, final.Questions, 2)
	assert.Equal(t, "q2", final.Questions[1].QuestionId)
	assert.Equal(t, "Rewritten question text?", final.Questions[1].Question)
	assert.Equal(t, "Old question one?", final.Questions[0].Question)
}

func TestRewriteUnknownTargetFailsGracefully(t *testing.T) {
	agent, err := NewAgent(scriptedLLM(""), events.NopSink{}, testLogger())
	require.NoError(t, err)

	state := testState(store.DefaultPipelineConfig())
	state.Artifact = existingArtifact()
	state.TargetQuestionId = "q99"

	final, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, final.Error, "q99")
	// The untouched artifact still reaches the caller
	require.NotNil(t, final.Artifact)
	assert.Len(t, final.Artifact.Questions, 2)
}

func TestRespondPathDoesNotMutateArtifact(t *testing.T) {
	agent, err := NewAgent(scriptedLLM(""), events.NopSink{}, testLogger())
	require.NoError(t, err)

	state := testState(store.DefaultPipelineConfig())
	state.Artifact = existingArtifact()
	state.UserQuery = "what does question 2 test?"

	final, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	assert.Equal(t, "Question 2 tests recall of the chloroplast.", final.QueryResponse)
	assert.Equal(t, "Old question one?", final.Artifact.Questions[0].Question)
	assert.Equal(t, "Old question two?", final.Artifact.Questions[1].Question)
}

func TestReflectionLoopIsBounded(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.ShouldReflect = true
	cfg.MaxIterations = 2

	generateCalls := 0
	base := scriptedLLM(`{"should_regenerate": true, "critique": "too easy", "quality_score": 0.3}`)
	counting := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Create exactly") {
			generateCalls++
		}
		return base.generate(prompt)
	}}

	agent, err := NewAgent(counting, events.NopSink{}, testLogger())
	require.NoError(t, err)

	// Critique always demands regeneration; the ceiling must stop it
	final, err := agent.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Equal(t, cfg.MaxIterations, final.IterationCount)
	assert.Equal(t, cfg.MaxIterations+1, generateCalls)
	assert.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.Reflection)
	assert.True(t, final.Reflection.ShouldRegenerate)
}

func TestReflectionAcceptVerdictSkipsLoop(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.ShouldReflect = true

	agent, err := NewAgent(scriptedLLM(`{"should_regenerate": false, "critique": "solid set", "quality_score": 0.9}`), events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := agent.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Equal(t, 0, final.IterationCount)
	require.NotNil(t, final.Reflection)
	assert.InDelta(t, 0.9, final.Reflection.QualityScore, 0.001)
}

func TestReflectionErrorAcceptsArtifact(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.ShouldReflect = true

	base := scriptedLLM("")
	flaky := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "quality reviewer") {
			return "", errors.New("model timeout")
		}
		return base.generate(prompt)
	}}

	agent, err := NewAgent(flaky, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := agent.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	assert.Len(t, final.Questions, 3)
}

func TestGenerationFailureStillReturnsPartialState(t *testing.T) {
	failing := &fakeLLM{generate: func(prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}

	agent, err := NewAgent(failing, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := agent.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	assert.Contains(t, final.Error, "quota exceeded")
	assert.Empty(t, final.Questions)
	assert.NotNil(t, final.CompletedAt)
}

func TestFollowupFailureIsNonFatal(t *testing.T) {
	base := scriptedLLM("")
	flaky := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Suggest up to 3") {
			return "", errors.New("model timeout")
		}
		return base.generate(prompt)
	}}

	agent, err := NewAgent(flaky, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := agent.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	assert.Len(t, final.Questions, 3)
	assert.Empty(t, final.FollowupSuggestions)
}
