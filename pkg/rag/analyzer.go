package rag

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

// QueryAnalyzer classifies the incoming query before retrieval. A
// model failure here is fatal for the run; a malformed response only
// degrades to a default analysis.
type QueryAnalyzer struct {
	llmProvider llm.LLMProvider
	sink        events.StreamSink
	logger      *log.Logger
}

func NewQueryAnalyzer(llmProvider llm.LLMProvider, sink events.StreamSink, logger *log.Logger) *QueryAnalyzer {
	return &QueryAnalyzer{
		llmProvider: llmProvider,
		sink:        sink,
		logger:      logger,
	}
}

func (n *QueryAnalyzer) Name() string { return NodeQueryAnalyzer }

func (n *QueryAnalyzer) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("analysis", "Analyzing query intent")
	n.sink.Emit(events.KindThinking, map[string]interface{}{"step": "analyzing_query"})

	prompt := n.buildPrompt(state.OriginalInput)

	response, err := n.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		n.logger.Printf("[ERROR] Query analysis failed: %v", err)
		state.Fail(fmt.Sprintf("query analysis failed: %v", err))
		return state
	}

	analysis, err := n.parseAnalysis(response)
	if err != nil {
		n.logger.Printf("[WARN] Analysis parsing failed, using defaults: %v", err)
		analysis = &store.QueryAnalysis{
			Intent:     "informational",
			Complexity: "medium",
		}
	}

	n.logger.Printf("[ANALYSIS] Intent: %s, Concepts: %v, Complexity: %s",
		analysis.Intent, analysis.KeyConcepts, analysis.Complexity)

	state.Analysis = analysis
	state.CurrentQuery = state.OriginalInput
	state.AddThinkingStep("analysis", fmt.Sprintf("Intent resolved as %q", analysis.Intent))
	state.NextAction = store.ActionRetrieve
	return state
}

func (n *QueryAnalyzer) buildPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a query analyzer for an educational search system.\n")
	prompt.WriteString("You do NOT answer the question. You only classify it.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString(fmt.Sprintf("Query: %s\n\n", query))

	prompt.WriteString("Respond ONLY with JSON in this exact format:\n")
	prompt.WriteString(`{"intent": "informational|procedural|comparative", "key_concepts": ["..."], "complexity": "low|medium|high"}`)
	prompt.WriteString("\n")

	return prompt.String()
}

func (n *QueryAnalyzer) parseAnalysis(response string) (*store.QueryAnalysis, error) {
	cleaned := stripCodeFence(response)

	var analysis store.QueryAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if analysis.Intent == "" {
		analysis.Intent = "informational"
	}
	if analysis.Complexity == "" {
		analysis.Complexity = "medium"
	}
	return &analysis, nil
}

// stripCodeFence removes a surrounding markdown fence so the JSON body
// can be parsed directly.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "```json"); idx != -1 {
		trimmed = trimmed[idx+len("```json"):]
	} else if idx := strings.Index(trimmed, "```"); idx != -1 {
		trimmed = trimmed[idx+len("```"):]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
