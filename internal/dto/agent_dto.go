package dto

import (
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
)

// PipelineOverrides lets a caller tune individual pipeline knobs; nil
// fields keep the configured defaults.
type PipelineOverrides struct {
	MaxRetrievalAttempts     *int     `json:"max_retrieval_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	RelevanceThreshold       *float64 `json:"relevance_threshold,omitempty" validate:"omitempty,min=0,max=1"`
	TopK                     *int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	EnableQueryRewriting     *bool    `json:"enable_query_rewriting,omitempty"`
	EnableHallucinationCheck *bool    `json:"enable_hallucination_check,omitempty"`
	QuestionCount            *int     `json:"question_count,omitempty" validate:"omitempty,min=1,max=30"`
	MaxIterations            *int     `json:"max_iterations,omitempty" validate:"omitempty,min=0,max=5"`
	ShouldReflect            *bool    `json:"should_reflect,omitempty"`
}

type GenerateQuestionsRequest struct {
	Prompt           string             `json:"prompt" validate:"required,min=3"`
	SessionId        *uuid.UUID         `json:"session_id,omitempty"`
	MaterialIds      []uuid.UUID        `json:"material_ids,omitempty"`
	TargetQuestionId string             `json:"target_question_id,omitempty"`
	UserQuery        string             `json:"user_query,omitempty"`
	NewTheme         string             `json:"new_theme,omitempty"`
	Overrides        *PipelineOverrides `json:"overrides,omitempty"`
}

type GenerateQuestionsResponse struct {
	Result store.GenerationResult `json:"result"`
}

type RAGQueryRequest struct {
	Query       string             `json:"query" validate:"required,min=3"`
	DocumentIds []uuid.UUID        `json:"document_ids,omitempty"`
	Overrides   *PipelineOverrides `json:"overrides,omitempty"`
}

type RAGQueryResponse struct {
	Result store.RAGResult `json:"result"`
	Cached bool            `json:"cached"`
}

type SessionResponse struct {
	SessionId     string                    `json:"session_id"`
	Kind          string                    `json:"kind"`
	Status        string                    `json:"status"`
	Questions     []store.GeneratedQuestion `json:"questions,omitempty"`
	ThinkingSteps []store.ThinkingStep      `json:"thinking_steps,omitempty"`
	Error         string                    `json:"error,omitempty"`
}
