package qgen

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// GenerateFollowup asks the model for a short list of suggested next
// actions on the artifact. Suggestions are decorative: a failure here
// degrades to an empty list and never fails the run.
type GenerateFollowup struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewGenerateFollowup(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *GenerateFollowup {
	return &GenerateFollowup{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *GenerateFollowup) Name() string { return NodeFollowup }

func (n *GenerateFollowup) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("followup", "Generating followup suggestions")

	var prompt strings.Builder
	prompt.WriteString("<generated_questions>\n")
	prompt.WriteString(renderQuestions(state.Questions))
	prompt.WriteString("\n</generated_questions>\n\n")
	prompt.WriteString("Suggest up to 3 short next actions the user could take with this question set.\n")
	prompt.WriteString(`Respond ONLY with a JSON array of strings, e.g. ["Make question 2 harder"].` + "\n")

	response, err := n.llmProvider.Generate(ctx, prompt.String(), llm.WithMaxTokens(256))
	if err != nil {
		n.logger.Printf("[WARN] Followup generation failed, continuing without: %v", err)
	} else {
		state.FollowupSuggestions = parseSuggestions(response)
	}

	if state.Config.ShouldReflect {
		state.NextAction = store.ActionReflect
	} else {
		state.NextAction = store.ActionClean
	}
	return state
}

func parseSuggestions(response string) []string {
	cleaned := stripFence(response)

	var suggestions []string
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err != nil {
		return nil
	}

	out := suggestions[:0]
	for _, s := range suggestions {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
