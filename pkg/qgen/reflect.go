package qgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// Reflect self-critiques the artifact against a quality rubric. A
// regeneration verdict loops back to the originating operation, but
// only while the iteration budget holds; this is the agent's single
// feedback loop and the ceiling is checked before the loop-back edge
// is taken.
type Reflect struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewReflect(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *Reflect {
	return &Reflect{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *Reflect) Name() string { return NodeReflect }

func (n *Reflect) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("reflection", fmt.Sprintf("Critiquing artifact (iteration %d)", state.IterationCount))
	n.sink.Emit(events.KindThinking, map[string]interface{}{
		"step":      "reflecting",
		"iteration": state.IterationCount,
	})

	prompt := n.buildPrompt(state)

	response, err := n.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		// Critique is best-effort; ship the artifact as-is
		n.logger.Printf("[WARN] Reflection call failed, accepting artifact: %v", err)
		state.NextAction = store.ActionClean
		return state
	}

	result, err := n.parseReflection(response)
	if err != nil {
		n.logger.Printf("[WARN] Reflection parsing failed, accepting artifact: %v", err)
		state.NextAction = store.ActionClean
		return state
	}

	state.Reflection = result
	n.logger.Printf("[REFLECTION] Quality %.2f, regenerate=%v", result.QualityScore, result.ShouldRegenerate)

	if result.ShouldRegenerate && state.IterationCount < state.Config.MaxIterations {
		state.IterationCount++
		state.AddThinkingStep("reflection", fmt.Sprintf("Regenerating (iteration %d): %s", state.IterationCount, result.Critique))
		state.NextAction = state.RouteOp
		return state
	}

	state.NextAction = store.ActionClean
	return state
}

func (n *Reflect) buildPrompt(state *store.State) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a quality reviewer for exam questions.\n")
	prompt.WriteString("Judge clarity, correctness, difficulty labeling, and coverage of the theme.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<questions>\n")
	prompt.WriteString(renderQuestions(state.Questions))
	prompt.WriteString("\n</questions>\n\n")

	prompt.WriteString("Respond ONLY with JSON:\n")
	prompt.WriteString(`{"should_regenerate": false, "critique": "...", "quality_score": 0.0}`)
	prompt.WriteString("\n")

	return prompt.String()
}

func (n *Reflect) parseReflection(response string) (*store.ReflectionResult, error) {
	cleaned := stripFence(response)

	var result store.ReflectionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("invalid reflection JSON: %w", err)
	}
	return &result, nil
}
