package qgen

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// RespondToQuery answers a free-text question about already-generated
// content. It never mutates the artifact.
type RespondToQuery struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewRespondToQuery(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *RespondToQuery {
	return &RespondToQuery{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *RespondToQuery) Name() string { return NodeRespondQuery }

func (n *RespondToQuery) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("respond", "Answering question about generated content")
	n.sink.Emit(events.KindAction, map[string]interface{}{"step": "answering_query"})

	var prompt strings.Builder
	prompt.WriteString("<generated_questions>\n")
	prompt.WriteString(renderQuestions(state.Artifact.Questions))
	prompt.WriteString("\n</generated_questions>\n\n")
	prompt.WriteString("<task>\n")
	prompt.WriteString("Answer the user's question about the question set above.\n")
	prompt.WriteString("Do NOT modify or regenerate the questions.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString(fmt.Sprintf("Question: %s\n", state.UserQuery))

	response, err := n.llmProvider.Generate(ctx, prompt.String())
	if err != nil {
		n.logger.Printf("[ERROR] Query response failed: %v", err)
		if state.Error == "" {
			state.Error = fmt.Sprintf("query response failed: %v", err)
		}
		state.NextAction = store.ActionClean
		return state
	}

	state.QueryResponse = strings.TrimSpace(response)
	state.NextAction = store.ActionClean
	return state
}
