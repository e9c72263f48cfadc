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

// artifactOp carries the collaborators shared by the four artifact
// operation nodes. Each operation issues one model call, hands the raw
// text to the parser, and emits a best-effort completion event per
// produced item. A model failure records the error and routes to
// cleanup so partial results still reach the caller.
type artifactOp struct {
	llmProvider llm.LLMProvider
	parser      *Parser
	sink        events.StreamSink
	logger      *log.Logger
}

func (op *artifactOp) invoke(ctx context.Context, state *store.State, opName, prompt string) ([]store.GeneratedQuestion, bool) {
	response, err := op.llmProvider.Generate(ctx, prompt)
	if err != nil {
		op.logger.Printf("[ERROR] %s model call failed: %v", opName, err)
		if state.Error == "" {
			state.Error = fmt.Sprintf("%s failed: %v", opName, err)
		}
		state.NextAction = store.ActionClean
		return nil, false
	}

	questions := op.parser.ParseQuestions(response)
	op.logger.Printf("[%s] Parsed %d questions", strings.ToUpper(opName), len(questions))

	for _, q := range questions {
		op.sink.Emit(events.KindQuestionComplete, map[string]interface{}{
			"session_id":  state.Identity.SessionId,
			"user_id":     state.Identity.UserId,
			"tenant_id":   state.Identity.TenantId,
			"question_id": q.QuestionId,
			"type":        q.Type,
			"difficulty":  q.Difficulty,
			"question":    q,
		})
	}

	return questions, true
}

// GenerateArtifact creates a fresh question set from the source
// materials.
type GenerateArtifact struct {
	artifactOp
}

func NewGenerateArtifact(llmProvider llm.LLMProvider, parser *Parser, sink events.StreamSink, logger *log.Logger) *GenerateArtifact {
	return &GenerateArtifact{artifactOp{llmProvider: llmProvider, parser: parser, sink: sink, logger: logger}}
}

func (n *GenerateArtifact) Name() string { return NodeGenerateArtifact }

func (n *GenerateArtifact) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("generation", fmt.Sprintf("Generating %d questions", state.Config.QuestionCount))
	n.sink.Emit(events.KindAction, map[string]interface{}{"step": "generating_questions"})

	var prompt strings.Builder
	prompt.WriteString(buildMaterialContext(state.Materials))
	prompt.WriteString("\n<task>\n")
	prompt.WriteString(fmt.Sprintf("Create exactly %d exam questions about: %s\n", state.Config.QuestionCount, state.OriginalInput))
	prompt.WriteString("Mix question types and difficulties appropriate to the material.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString(questionSchemaHint())

	questions, ok := n.invoke(ctx, state, "question generation", prompt.String())
	if !ok {
		return state
	}

	state.Questions = questions
	state.Artifact = &store.Artifact{
		Theme:     state.OriginalInput,
		Questions: questions,
	}
	state.NextAction = store.ActionFollowup
	return state
}

// UpdateArtifact revises the existing question set against the new
// instruction while keeping its theme.
type UpdateArtifact struct {
	artifactOp
}

func NewUpdateArtifact(llmProvider llm.LLMProvider, parser *Parser, sink events.StreamSink, logger *log.Logger) *UpdateArtifact {
	return &UpdateArtifact{artifactOp{llmProvider: llmProvider, parser: parser, sink: sink, logger: logger}}
}

func (n *UpdateArtifact) Name() string { return NodeUpdateArtifact }

func (n *UpdateArtifact) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("update", "Updating existing questions")
	n.sink.Emit(events.KindAction, map[string]interface{}{"step": "updating_questions"})

	var prompt strings.Builder
	prompt.WriteString(buildMaterialContext(state.Materials))
	prompt.WriteString("\n<current_questions>\n")
	prompt.WriteString(renderQuestions(state.Artifact.Questions))
	prompt.WriteString("\n</current_questions>\n\n")
	prompt.WriteString("<task>\n")
	prompt.WriteString(fmt.Sprintf("Revise the questions above according to this instruction: %s\n", state.OriginalInput))
	prompt.WriteString("Return the FULL revised set, not a diff.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString(questionSchemaHint())

	questions, ok := n.invoke(ctx, state, "question update", prompt.String())
	if !ok {
		return state
	}

	if len(questions) > 0 {
		state.Questions = questions
		state.Artifact.Questions = questions
	}
	state.NextAction = store.ActionFollowup
	return state
}

// RewriteQuestion regenerates a single question in place, preserving
// its id so callers can track it across the edit.
type RewriteQuestion struct {
	artifactOp
}

func NewRewriteQuestion(llmProvider llm.LLMProvider, parser *Parser, sink events.StreamSink, logger *log.Logger) *RewriteQuestion {
	return &RewriteQuestion{artifactOp{llmProvider: llmProvider, parser: parser, sink: sink, logger: logger}}
}

func (n *RewriteQuestion) Name() string { return NodeRewriteQuestion }

func (n *RewriteQuestion) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("rewrite", "Rewriting question "+state.TargetQuestionId)
	n.sink.Emit(events.KindAction, map[string]interface{}{
		"step":        "rewriting_question",
		"question_id": state.TargetQuestionId,
	})

	target := -1
	for i, q := range state.Artifact.Questions {
		if q.QuestionId == state.TargetQuestionId {
			target = i
			break
		}
	}
	if target == -1 {
		if state.Error == "" {
			state.Error = fmt.Sprintf("question %s not found in the current set", state.TargetQuestionId)
		}
		state.NextAction = store.ActionClean
		return state
	}

	var prompt strings.Builder
	prompt.WriteString(buildMaterialContext(state.Materials))
	prompt.WriteString("\n<question_to_rewrite>\n")
	prompt.WriteString(renderQuestions([]store.GeneratedQuestion{state.Artifact.Questions[target]}))
	prompt.WriteString("\n</question_to_rewrite>\n\n")
	prompt.WriteString("<task>\n")
	prompt.WriteString(fmt.Sprintf("Rewrite this single question. Instruction: %s\n", state.OriginalInput))
	prompt.WriteString("Keep the same topic unless told otherwise. Return a one-element JSON array.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString(questionSchemaHint())

	questions, ok := n.invoke(ctx, state, "question rewrite", prompt.String())
	if !ok {
		return state
	}

	if len(questions) > 0 {
		rewritten := questions[0]
		rewritten.QuestionId = state.TargetQuestionId
		state.Artifact.Questions[target] = rewritten
		state.Questions = state.Artifact.Questions
	}
	state.NextAction = store.ActionFollowup
	return state
}

// RewriteTheme regenerates the whole set under a new theme, keeping
// the set size and difficulty spread of the original.
type RewriteTheme struct {
	artifactOp
}

func NewRewriteTheme(llmProvider llm.LLMProvider, parser *Parser, sink events.StreamSink, logger *log.Logger) *RewriteTheme {
	return &RewriteTheme{artifactOp{llmProvider: llmProvider, parser: parser, sink: sink, logger: logger}}
}

func (n *RewriteTheme) Name() string { return NodeRewriteTheme }

func (n *RewriteTheme) Apply(ctx context.Context, state *store.State) *store.State {
	state.AddThinkingStep("rewrite_theme", "Rewriting question set for theme "+state.NewTheme)
	n.sink.Emit(events.KindAction, map[string]interface{}{
		"step":  "rewriting_theme",
		"theme": state.NewTheme,
	})

	var prompt strings.Builder
	prompt.WriteString(buildMaterialContext(state.Materials))
	prompt.WriteString("\n<current_questions>\n")
	prompt.WriteString(renderQuestions(state.Artifact.Questions))
	prompt.WriteString("\n</current_questions>\n\n")
	prompt.WriteString("<task>\n")
	prompt.WriteString(fmt.Sprintf("Recreate the question set above for a new theme: %s\n", state.NewTheme))
	prompt.WriteString("Keep the same number of questions and a similar difficulty spread.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString(questionSchemaHint())

	questions, ok := n.invoke(ctx, state, "theme rewrite", prompt.String())
	if !ok {
		return state
	}

	if len(questions) > 0 {
		state.Questions = questions
		state.Artifact = &store.Artifact{
			Theme:     state.NewTheme,
			Questions: questions,
		}
	}
	state.NextAction = store.ActionFollowup
	return state
}
