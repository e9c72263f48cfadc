package contract

import (
	"context"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
)

// GenerationSessionRepository is the write-behind log for pipeline
// runs. The core never reads it for control-flow decisions.
type GenerationSessionRepository interface {
	Create(ctx context.Context, session *entity.GenerationSession) error
	Update(ctx context.Context, session *entity.GenerationSession) error
	// AppendQuestion adds one finished question to the session row so
	// partial output survives a crashed run.
	AppendQuestion(ctx context.Context, sessionId, userId, tenantId uuid.UUID, question store.GeneratedQuestion) error
	FindOne(ctx context.Context, sessionId, userId, tenantId uuid.UUID) (*entity.GenerationSession, error)
}
