package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// maxGradedContentLength bounds the document prefix sent to the model
// so grading prompts stay small.
const maxGradedContentLength = 1500

// RelevanceGrader filters retrieved candidates down to the set used
// for answer generation. A document survives if the model judges it
// relevant or its similarity score already clears the threshold; the
// score fallback keeps one bad LLM judgment from discarding a strong
// vector match.
type RelevanceGrader struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewRelevanceGrader(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *RelevanceGrader {
	return &RelevanceGrader{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *RelevanceGrader) Name() string { return NodeRelevanceGrader }

func (n *RelevanceGrader) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("grading", fmt.Sprintf("Grading %d retrieved documents", len(state.RetrievedDocuments)))
	n.sink.Emit(events.KindThinking, map[string]interface{}{"step": "grading_relevance"})

	relevant := make([]store.RetrievedDocument, 0, len(state.RetrievedDocuments))
	for i := range state.RetrievedDocuments {
		doc := &state.RetrievedDocuments[i]
		doc.Relevant = n.gradeDocument(ctx, state.CurrentQuery, doc, state.Config.RelevanceThreshold)
		if doc.Relevant {
			relevant = append(relevant, *doc)
		}
	}

	state.RelevantDocuments = relevant
	n.logger.Printf("[GRADING] Kept %d/%d documents", len(relevant), len(state.RetrievedDocuments))

	if len(relevant) == 0 {
		if state.Config.EnableQueryRewriting && state.RetrievalAttempts < state.Config.MaxRetrievalAttempts {
			state.AddThinkingStep("grading", "No relevant documents, rewriting query")
			state.NextAction = store.ActionRewrite
			return state
		}
		state.Fail("no relevant documents found for the query")
		return state
	}

	state.NextAction = store.ActionGenerate
	return state
}

func (n *RelevanceGrader) gradeDocument(ctx context.Context, query string, doc *store.RetrievedDocument, threshold float64) bool {
	content := doc.Content
	if len(content) > maxGradedContentLength {
		// Back off to a rune boundary so the prompt stays valid UTF-8
		cut := maxGradedContentLength
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}

	prompt := n.buildPrompt(query, content)

	response, err := n.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		// Score-only fallback when the judge is unavailable
		n.logger.Printf("[WARN] Grading call failed for %s, falling back to score: %v", doc.SourceId, err)
		return doc.Score >= threshold
	}

	verdict := strings.ToLower(strings.TrimSpace(response))
	if strings.Contains(verdict, "relevant") && !strings.Contains(verdict, "not_relevant") && !strings.Contains(verdict, "not relevant") {
		return true
	}

	return doc.Score >= threshold
}

func (n *RelevanceGrader) buildPrompt(query, content string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a strict relevance judge. Decide whether the document fragment helps answer the query.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString(fmt.Sprintf("Query: %s\n\n", query))
	prompt.WriteString(fmt.Sprintf("Document fragment:\n%s\n\n", content))

	prompt.WriteString("Respond with exactly one word: RELEVANT or NOT_RELEVANT\n")

	return prompt.String()
}
