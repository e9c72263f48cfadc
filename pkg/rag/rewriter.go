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

// QueryRewriter reformulates the query after an unproductive retrieval
// pass. The loop bound lives in the grader, not here: this node always
// routes straight back to the retriever on success.
type QueryRewriter struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewQueryRewriter(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *QueryRewriter {
	return &QueryRewriter{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *QueryRewriter) Name() string { return NodeQueryRewriter }

func (n *QueryRewriter) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("rewrite", fmt.Sprintf("Rewriting query after attempt %d", state.RetrievalAttempts))
	n.sink.Emit(events.KindThinking, map[string]interface{}{"step": "rewriting_query"})

	prompt := n.buildPrompt(state.OriginalInput, state.CurrentQuery, state.RetrievalAttempts)

	response, err := n.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil {
		n.logger.Printf("[ERROR] Query rewrite failed: %v", err)
		state.Fail(fmt.Sprintf("query rewrite failed: %v", err))
		return state
	}

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(response), `"`))
	if rewritten == "" {
		rewritten = state.OriginalInput
	}

	n.logger.Printf("[REWRITE] %q -> %q", state.CurrentQuery, rewritten)

	state.CurrentQuery = rewritten
	state.AddThinkingStep("rewrite", fmt.Sprintf("New query: %q", rewritten))
	state.NextAction = store.ActionRetrieve
	return state
}

func (n *QueryRewriter) buildPrompt(original, current string, attempt int) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You reformulate search queries that returned no useful documents.\n")
	prompt.WriteString("Use different terminology while preserving the original meaning.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString(fmt.Sprintf("Original question: %s\n", original))
	prompt.WriteString(fmt.Sprintf("Last attempted query: %s\n", current))
	prompt.WriteString(fmt.Sprintf("Retrieval attempts so far: %d\n\n", attempt))

	prompt.WriteString("Respond with ONLY the rewritten query, no explanation.\n")

	return prompt.String()
}
