package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// AnswerGenerator produces the final answer from the graded context
// block. Confidence is the mean similarity score of the documents the
// answer was grounded on.
type AnswerGenerator struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewAnswerGenerator(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *AnswerGenerator {
	return &AnswerGenerator{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *AnswerGenerator) Name() string { return NodeAnswerGenerator }

func (n *AnswerGenerator) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("generation", fmt.Sprintf("Generating answer from %d documents", len(state.RelevantDocuments)))
	n.sink.Emit(events.KindAction, map[string]interface{}{"step": "generating_answer"})

	contextBlock, sources := n.buildContext(state.RelevantDocuments)
	prompt := n.buildPrompt(state.CurrentQuery, contextBlock)

	answer, err := n.llmProvider.Generate(ctx, prompt)
	if err != nil {
		n.logger.Printf("[ERROR] Answer generation failed: %v", err)
		state.Fail(fmt.Sprintf("answer generation failed: %v", err))
		return state
	}

	confidence := 0.0
	for _, doc := range state.RelevantDocuments {
		confidence += doc.Score
	}
	if len(state.RelevantDocuments) > 0 {
		confidence /= float64(len(state.RelevantDocuments))
	}

	n.logger.Printf("[GENERATION] Answer generated from %d sources (confidence %.2f)", len(sources), confidence)

	state.GeneratedAnswer = answer
	state.Generation = &store.RAGGeneration{
		Answer:     answer,
		Confidence: confidence,
		Sources:    sources,
	}

	if state.Config.EnableHallucinationCheck {
		state.NextAction = store.ActionCheck
	} else {
		state.NextAction = store.ActionComplete
	}
	return state
}

func (n *AnswerGenerator) buildContext(docs []store.RetrievedDocument) (string, []string) {
	var block strings.Builder
	sources := make([]string, 0, len(docs))
	seen := make(map[string]bool)

	for _, doc := range docs {
		label := doc.SourceName
		if label == "" {
			label = doc.SourceId
		}
		block.WriteString(fmt.Sprintf("--- SOURCE: %s ---\n", label))
		block.WriteString(doc.Content)
		block.WriteString("\n\n")

		if !seen[doc.SourceId] {
			seen[doc.SourceId] = true
			sources = append(sources, doc.SourceId)
		}
	}

	return block.String(), sources
}

func (n *AnswerGenerator) buildPrompt(query, contextBlock string) string {
	var prompt strings.Builder

	prompt.WriteString("<grounded_reference_material>\n")
	prompt.WriteString("CRITICAL: Answer ONLY from the sources below. Do NOT use outside knowledge.\n\n")
	prompt.WriteString(contextBlock)
	prompt.WriteString("</grounded_reference_material>\n\n")

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("Answer the question directly and cite which source supports each claim.\n")
	prompt.WriteString("If the sources do not contain the answer, say so explicitly.\n")
	prompt.WriteString("</task_instructions>\n\n")

	prompt.WriteString(fmt.Sprintf("Question: %s\n", query))

	return prompt.String()
}
