package rag

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/retrieval"
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

// scriptedLLM answers by prompt shape so one fake serves every node.
func scriptedLLM(gradeVerdict string, checkVerdict string) *fakeLLM {
	return &fakeLLM{generate: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "query analyzer"):
			return `{"intent": "informational", "key_concepts": ["photosynthesis"], "complexity": "low"}`, nil
		case strings.Contains(prompt, "relevance judge"):
			return gradeVerdict, nil
		case strings.Contains(prompt, "reformulate search queries"):
			return "light dependent reactions in plants", nil
		case strings.Contains(prompt, "supported by its source"):
			return checkVerdict, nil
		default:
			return "Photosynthesis converts light into chemical energy.", nil
		}
	}}
}

// queueSearcher returns one canned result set per retrieval attempt.
type queueSearcher struct {
	batches [][]store.RetrievedDocument
	calls   int
	err     error
}

func (s *queueSearcher) Search(ctx context.Context, query string, scope retrieval.Scope, topK int) ([]store.RetrievedDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.calls]
	s.calls++
	return batch, nil
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
	state.OriginalInput = "How does photosynthesis work?"
	return state
}

func doc(content string, score float64) store.RetrievedDocument {
	return store.RetrievedDocument{
		Content:    content,
		SourceId:   uuid.NewString(),
		SourceName: "biology-notes.pdf",
		ChunkIndex: 0,
		Score:      score,
	}
}

func TestRunCompletesWithRelevantDocuments(t *testing.T) {
	searcher := &queueSearcher{batches: [][]store.RetrievedDocument{
		{doc("Photosynthesis uses sunlight to fix carbon.", 0.91)},
	}}
	pipeline, err := NewPipeline(scriptedLLM("RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	assert.NotEmpty(t, final.GeneratedAnswer)
	assert.Equal(t, 1, final.RetrievalAttempts)
	require.NotNil(t, final.Generation)
	assert.True(t, final.Generation.Checked)
	assert.False(t, final.Generation.Hallucinated)
	assert.NotNil(t, final.CompletedAt)
}

func TestRunFailsWithoutRewritingAfterOneAttempt(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.EnableQueryRewriting = false

	searcher := &queueSearcher{}
	pipeline, err := NewPipeline(scriptedLLM("NOT_RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Equal(t, 1, final.RetrievalAttempts)
	assert.Contains(t, final.Error, "no relevant documents")
	assert.Empty(t, final.GeneratedAnswer)
	assert.NotNil(t, final.CompletedAt)
}

func TestRunRecoversThroughQueryRewrite(t *testing.T) {
	searcher := &queueSearcher{batches: [][]store.RetrievedDocument{
		{},
		{doc("Chlorophyll absorbs red and blue light.", 0.88)},
	}}
	pipeline, err := NewPipeline(scriptedLLM("RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	assert.Empty(t, final.Error)
	assert.Equal(t, 2, final.RetrievalAttempts)
	assert.NotEmpty(t, final.GeneratedAnswer)
	assert.Equal(t, "light dependent reactions in plants", final.CurrentQuery)
}

func TestRetrievalAttemptsNeverExceedMaximum(t *testing.T) {
	cfg := store.DefaultPipelineConfig()
	cfg.MaxRetrievalAttempts = 3

	// Every retrieval comes back empty so the rewrite loop runs dry
	searcher := &queueSearcher{}
	pipeline, err := NewPipeline(scriptedLLM("NOT_RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(cfg))
	require.NoError(t, err)

	assert.Equal(t, cfg.MaxRetrievalAttempts, final.RetrievalAttempts)
	assert.Contains(t, final.Error, "no relevant documents")
}

func TestRelevantDocumentsAreSubsetOfRetrieved(t *testing.T) {
	kept := doc("Photosynthesis overview.", 0.95)
	dropped := doc("Unrelated chapter on mitosis.", 0.10)

	searcher := &queueSearcher{batches: [][]store.RetrievedDocument{{kept, dropped}}}

	// Judge everything NOT_RELEVANT; only the score fallback keeps docs
	pipeline, err := NewPipeline(scriptedLLM("NOT_RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	retrieved := make(map[string]bool)
	for _, d := range final.RetrievedDocuments {
		retrieved[d.SourceId] = true
	}
	require.NotEmpty(t, final.RelevantDocuments)
	for _, d := range final.RelevantDocuments {
		assert.True(t, retrieved[d.SourceId], "relevant document %s was never retrieved", d.SourceId)
	}
	assert.Len(t, final.RelevantDocuments, 1)
	assert.Equal(t, kept.SourceId, final.RelevantDocuments[0].SourceId)
}

func TestHallucinationCheckIsNeverFatal(t *testing.T) {
	t.Run("flagged answer still completes", func(t *testing.T) {
		searcher := &queueSearcher{batches: [][]store.RetrievedDocument{
			{doc("Cell walls are made of cellulose.", 0.9)},
		}}
		pipeline, err := NewPipeline(scriptedLLM("RELEVANT", "UNSUPPORTED"), searcher, events.NopSink{}, testLogger())
		require.NoError(t, err)

		final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
		require.NoError(t, err)

		assert.Empty(t, final.Error)
		require.NotNil(t, final.Generation)
		assert.True(t, final.Generation.Hallucinated)
		assert.NotEmpty(t, final.GeneratedAnswer)
	})

	t.Run("checker error is swallowed", func(t *testing.T) {
		base := scriptedLLM("RELEVANT", "SUPPORTED")
		flaky := &fakeLLM{generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "supported by its source") {
				return "", errors.New("model timeout")
			}
			return base.generate(prompt)
		}}

		searcher := &queueSearcher{batches: [][]store.RetrievedDocument{
			{doc("Cell walls are made of cellulose.", 0.9)},
		}}
		pipeline, err := NewPipeline(flaky, searcher, events.NopSink{}, testLogger())
		require.NoError(t, err)

		final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
		require.NoError(t, err)

		assert.Empty(t, final.Error)
		require.NotNil(t, final.Generation)
		assert.False(t, final.Generation.Checked)
		assert.NotEmpty(t, final.GeneratedAnswer)
	})
}

func TestRetrievalErrorRoutesToFail(t *testing.T) {
	searcher := &queueSearcher{err: errors.New("connection refused")}
	pipeline, err := NewPipeline(scriptedLLM("RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	assert.Contains(t, final.Error, "retrieval failed")
	assert.Empty(t, final.GeneratedAnswer)
}

func TestTerminalStateHasExactlyOneOutcome(t *testing.T) {
	cases := []struct {
		name     string
		llm      *fakeLLM
		searcher *queueSearcher
	}{
		{
			name:     "success",
			llm:      scriptedLLM("RELEVANT", "SUPPORTED"),
			searcher: &queueSearcher{batches: [][]store.RetrievedDocument{{doc("content", 0.9)}}},
		},
		{
			name:     "failure",
			llm:      scriptedLLM("NOT_RELEVANT", "SUPPORTED"),
			searcher: &queueSearcher{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipeline, err := NewPipeline(tc.llm, tc.searcher, events.NopSink{}, testLogger())
			require.NoError(t, err)

			final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
			require.NoError(t, err)

			hasAnswer := final.GeneratedAnswer != ""
			hasError := final.Error != ""
			assert.True(t, hasAnswer != hasError, "terminal state must set exactly one of answer/error")
		})
	}
}

func TestThinkingStepsOnlyGrow(t *testing.T) {
	searcher := &queueSearcher{batches: [][]store.RetrievedDocument{
		{},
		{doc("content", 0.9)},
	}}
	pipeline, err := NewPipeline(scriptedLLM("RELEVANT", "SUPPORTED"), searcher, events.NopSink{}, testLogger())
	require.NoError(t, err)

	final, err := pipeline.Run(context.Background(), testState(store.DefaultPipelineConfig()))
	require.NoError(t, err)

	require.NotEmpty(t, final.ThinkingSteps)
	for i := 1; i < len(final.ThinkingSteps); i++ {
		assert.False(t, final.ThinkingSteps[i].Timestamp.Before(final.ThinkingSteps[i-1].Timestamp))
	}
}

func TestGradingTruncationKeepsValidUTF8(t *testing.T) {
	var captured string
	judge := &fakeLLM{generate: func(prompt string) (string, error) {
		captured = prompt
		return "NOT_RELEVANT", nil
	}}
	grader := NewRelevanceGrader(judge, events.NopSink{}, testLogger())

	// A leading ASCII byte pushes every two-byte rune onto an odd
	// offset, so a byte-indexed cut at the limit would split one.
	content := "a" + strings.Repeat("é", maxGradedContentLength)
	d := doc(content, 0.1)
	grader.gradeDocument(context.Background(), "photosynthesis", &d, 0.9)

	require.NotEmpty(t, captured)
	assert.True(t, utf8.ValidString(captured))
	assert.Less(t, len(captured), len(content))
}
