package service

import (
	"context"

	"ai-edulab-be/internal/pkg/logger"
	"ai-edulab-be/internal/repository/contract"
	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
)

// PersistingSink decorates the stream sink with the per-question
// write-behind: every completed question is appended to its session
// row as it is produced, so a run that dies mid-generation still
// leaves its partial output in the log. Append failures are logged
// and never reach the pipeline.
type PersistingSink struct {
	next        events.StreamSink
	sessionRepo contract.GenerationSessionRepository
	logger      logger.ILogger
}

func NewPersistingSink(next events.StreamSink, sessionRepo contract.GenerationSessionRepository, log logger.ILogger) *PersistingSink {
	return &PersistingSink{
		next:        next,
		sessionRepo: sessionRepo,
		logger:      log,
	}
}

var _ events.StreamSink = &PersistingSink{}

func (s *PersistingSink) Emit(kind events.EventKind, payload map[string]interface{}) {
	s.next.Emit(kind, payload)

	if kind != events.KindQuestionComplete {
		return
	}

	question, ok := payload["question"].(store.GeneratedQuestion)
	if !ok {
		return
	}
	sessionId, ok1 := payload["session_id"].(uuid.UUID)
	userId, ok2 := payload["user_id"].(uuid.UUID)
	tenantId, ok3 := payload["tenant_id"].(uuid.UUID)
	if !ok1 || !ok2 || !ok3 {
		return
	}

	if err := s.sessionRepo.AppendQuestion(context.Background(), sessionId, userId, tenantId, question); err != nil {
		s.logger.Warn("PersistingSink", "Failed to append question to session log", map[string]interface{}{
			"session_id":  sessionId.String(),
			"question_id": question.QuestionId,
			"error":       err.Error(),
		})
	}
}
