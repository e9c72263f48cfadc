package service

import (
	"fmt"
	"time"

	"ai-edulab-be/internal/dto"
	"ai-edulab-be/internal/entity"
	"ai-edulab-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// snapshotSession converts the live state into the write-behind
// session record.
func snapshotSession(state *store.State, kind, status string) *entity.GenerationSession {
	session := &entity.GenerationSession{
		Id:            state.Identity.SessionId,
		UserId:        state.Identity.UserId,
		TenantId:      state.Identity.TenantId,
		Kind:          kind,
		Prompt:        state.OriginalInput,
		Answer:        state.GeneratedAnswer,
		Error:         state.Error,
		Status:        status,
		Questions:     state.Questions,
		ThinkingSteps: state.ThinkingSteps,
	}
	return session
}

func sessionToResponse(session *entity.GenerationSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		SessionId:     session.Id.String(),
		Kind:          session.Kind,
		Status:        session.Status,
		Questions:     session.Questions,
		ThinkingSteps: session.ThinkingSteps,
		Error:         session.Error,
	}
}

func fiberNotFound(sessionId uuid.UUID) error {
	return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("session %s not found", sessionId))
}

// buildRAGResult converts a terminal RAG state into the immutable
// caller-facing record.
func buildRAGResult(state *store.State) store.RAGResult {
	result := store.RAGResult{
		SessionId:         state.Identity.SessionId.String(),
		Answer:            state.GeneratedAnswer,
		Error:             state.Error,
		RetrievalAttempts: state.RetrievalAttempts,
		ThinkingSteps:     state.ThinkingSteps,
		Documents:         state.RelevantDocuments,
	}
	if state.Generation != nil {
		result.Sources = state.Generation.Sources
		result.Confidence = state.Generation.Confidence
		result.Hallucinated = state.Generation.Hallucinated
	}
	if state.CompletedAt != nil {
		result.CompletedAt = *state.CompletedAt
	} else {
		result.CompletedAt = time.Now()
	}
	return result
}

// buildGenerationResult converts a terminal agent state. Partial
// question sets survive alongside the error message.
func buildGenerationResult(state *store.State) store.GenerationResult {
	result := store.GenerationResult{
		SessionId:           state.Identity.SessionId.String(),
		Questions:           state.Questions,
		FollowupSuggestions: state.FollowupSuggestions,
		QueryResponse:       state.QueryResponse,
		Error:               state.Error,
		Iterations:          state.IterationCount,
		ThinkingSteps:       state.ThinkingSteps,
	}
	if result.Questions == nil {
		result.Questions = []store.GeneratedQuestion{}
	}
	if state.CompletedAt != nil {
		result.CompletedAt = *state.CompletedAt
	} else {
		result.CompletedAt = time.Now()
	}
	return result
}

// applyOverrides copies the defaults and applies any caller-supplied
// knob values.
func applyOverrides(defaults store.PipelineConfig, overrides *dto.PipelineOverrides) store.PipelineConfig {
	cfg := defaults
	if overrides == nil {
		return cfg
	}
	if overrides.MaxRetrievalAttempts != nil {
		cfg.MaxRetrievalAttempts = *overrides.MaxRetrievalAttempts
	}
	if overrides.RelevanceThreshold != nil {
		cfg.RelevanceThreshold = *overrides.RelevanceThreshold
	}
	if overrides.TopK != nil {
		cfg.TopK = *overrides.TopK
	}
	if overrides.EnableQueryRewriting != nil {
		cfg.EnableQueryRewriting = *overrides.EnableQueryRewriting
	}
	if overrides.EnableHallucinationCheck != nil {
		cfg.EnableHallucinationCheck = *overrides.EnableHallucinationCheck
	}
	if overrides.QuestionCount != nil {
		cfg.QuestionCount = *overrides.QuestionCount
	}
	if overrides.MaxIterations != nil {
		cfg.MaxIterations = *overrides.MaxIterations
	}
	if overrides.ShouldReflect != nil {
		cfg.ShouldReflect = *overrides.ShouldReflect
	}
	return cfg
}
