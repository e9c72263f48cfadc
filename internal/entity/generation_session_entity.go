package entity

import (
	"time"

	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
)

// Session kinds and statuses for the write-behind pipeline log.
const (
	SessionKindRAG        = "rag"
	SessionKindGeneration = "question_generation"

	SessionStatusRunning   = "running"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

type GenerationSession struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	TenantId      uuid.UUID
	Kind          string
	Prompt        string
	Answer        string
	Error         string
	Status        string
	Questions     []store.GeneratedQuestion
	ThinkingSteps []store.ThinkingStep
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
