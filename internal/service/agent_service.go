package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"ai-edulab-be/internal/dto"
	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/pkg/logger"
	"ai-edulab-be/internal/repository/contract"
	"ai-edulab-be/internal/repository/memory"
	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/qgen"
	"ai-edulab-be/pkg/rag"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type IAgentService interface {
	GenerateQuestions(ctx context.Context, userId, tenantId uuid.UUID, req *dto.GenerateQuestionsRequest) (*dto.GenerateQuestionsResponse, error)
	RunRAGQuery(ctx context.Context, userId, tenantId uuid.UUID, req *dto.RAGQueryRequest) (*dto.RAGQueryResponse, error)
	GetSession(ctx context.Context, userId, tenantId, sessionId uuid.UUID) (*dto.SessionResponse, error)
}

// AuditPublisher mirrors terminal pipeline events onto the audit
// stream. A nil publisher disables auditing.
type AuditPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type AgentService struct {
	ragPipeline *rag.Pipeline
	qgenAgent   *qgen.Agent

	materialRepo contract.MaterialRepository
	sessionRepo  contract.GenerationSessionRepository
	activeRepo   *memory.SessionRepository

	auditPub       AuditPublisher
	redisClient    *redis.Client
	answerCacheTTL time.Duration
	defaults       store.PipelineConfig
	logger         logger.ILogger
}

func NewAgentService(
	ragPipeline *rag.Pipeline,
	qgenAgent *qgen.Agent,
	materialRepo contract.MaterialRepository,
	sessionRepo contract.GenerationSessionRepository,
	activeRepo *memory.SessionRepository,
	auditPub AuditPublisher,
	redisClient *redis.Client,
	answerCacheTTL time.Duration,
	defaults store.PipelineConfig,
	logger logger.ILogger,
) IAgentService {
	return &AgentService{
		ragPipeline:    ragPipeline,
		qgenAgent:      qgenAgent,
		materialRepo:   materialRepo,
		sessionRepo:    sessionRepo,
		activeRepo:     activeRepo,
		auditPub:       auditPub,
		redisClient:    redisClient,
		answerCacheTTL: answerCacheTTL,
		defaults:       defaults,
		logger:         logger,
	}
}

var _ IAgentService = &AgentService{}

// GenerateQuestions runs one question-generation session. Each call
// builds a fresh state, so retrying at the caller level is safe.
func (s *AgentService) GenerateQuestions(ctx context.Context, userId, tenantId uuid.UUID, req *dto.GenerateQuestionsRequest) (*dto.GenerateQuestionsResponse, error) {
	identity := store.Identity{
		SessionId: uuid.New(),
		UserId:    userId,
		TenantId:  tenantId,
	}
	cfg := applyOverrides(s.defaults, req.Overrides)

	state := store.NewState(identity, cfg)
	state.OriginalInput = req.Prompt
	state.TargetQuestionId = req.TargetQuestionId
	state.UserQuery = req.UserQuery
	state.NewTheme = req.NewTheme

	// Continuing sessions carry the previous artifact forward and keep
	// their existing database row
	resumed := false
	if req.SessionId != nil {
		if prev, found := s.activeRepo.Get(req.SessionId.String()); found &&
			prev.UserId == userId && prev.TenantId == tenantId && len(prev.Questions) > 0 {
			resumed = true
			identity.SessionId = *req.SessionId
			state.Identity.SessionId = *req.SessionId
			state.Questions = prev.Questions
			state.Artifact = &store.Artifact{
				Theme:     prev.Prompt,
				Questions: prev.Questions,
			}
		}
	}

	if err := s.loadMaterials(ctx, tenantId, req.MaterialIds, state); err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}

	s.persistSession(ctx, state, entity.SessionKindGeneration, entity.SessionStatusRunning, !resumed)

	final, err := s.qgenAgent.Run(ctx, state)
	if err != nil {
		// Routing contract violation; nothing recoverable here
		return nil, fmt.Errorf("question generation graph: %w", err)
	}

	result := buildGenerationResult(final)
	s.finishSession(ctx, final, entity.SessionKindGeneration)

	return &dto.GenerateQuestionsResponse{Result: result}, nil
}

// RunRAGQuery runs one RAG session, consulting the short-lived answer
// cache first. Cache and audit failures degrade to log lines.
func (s *AgentService) RunRAGQuery(ctx context.Context, userId, tenantId uuid.UUID, req *dto.RAGQueryRequest) (*dto.RAGQueryResponse, error) {
	cfg := applyOverrides(s.defaults, req.Overrides)

	if cached := s.cachedAnswer(ctx, tenantId, req); cached != nil {
		return &dto.RAGQueryResponse{Result: *cached, Cached: true}, nil
	}

	identity := store.Identity{
		SessionId: uuid.New(),
		UserId:    userId,
		TenantId:  tenantId,
	}

	state := store.NewState(identity, cfg)
	state.OriginalInput = req.Query
	state.DocumentIds = req.DocumentIds

	s.persistSession(ctx, state, entity.SessionKindRAG, entity.SessionStatusRunning, true)

	final, err := s.ragPipeline.Run(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("rag graph: %w", err)
	}

	result := buildRAGResult(final)
	s.finishSession(ctx, final, entity.SessionKindRAG)

	if result.Error == "" {
		s.cacheAnswer(ctx, tenantId, req, &result)
	}

	return &dto.RAGQueryResponse{Result: result}, nil
}

// GetSession reads the write-behind log, preferring the in-memory
// snapshot of active runs.
func (s *AgentService) GetSession(ctx context.Context, userId, tenantId, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	if session, found := s.activeRepo.Get(sessionId.String()); found {
		if session.UserId != userId || session.TenantId != tenantId {
			return nil, fiberNotFound(sessionId)
		}
		return sessionToResponse(session), nil
	}

	session, err := s.sessionRepo.FindOne(ctx, sessionId, userId, tenantId)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, fiberNotFound(sessionId)
	}
	return sessionToResponse(session), nil
}

func (s *AgentService) loadMaterials(ctx context.Context, tenantId uuid.UUID, ids []uuid.UUID, state *store.State) error {
	if len(ids) == 0 {
		return nil
	}

	materials, err := s.materialRepo.FindByIds(ctx, tenantId, ids)
	if err != nil {
		return err
	}

	for _, m := range materials {
		state.Materials = append(state.Materials, store.MaterialContent{
			Id:      m.Id,
			Name:    m.Name,
			Content: m.Content,
		})
	}
	return nil
}

// persistSession writes the current state snapshot to the memory store
// and the database row, inserting on fresh runs and updating on
// resumed ones. Database failures are logged and never fail the run.
func (s *AgentService) persistSession(ctx context.Context, state *store.State, kind, status string, create bool) {
	session := snapshotSession(state, kind, status)
	s.activeRepo.Save(session)

	var err error
	if create {
		err = s.sessionRepo.Create(ctx, session)
	} else {
		err = s.sessionRepo.Update(ctx, session)
	}
	if err != nil {
		s.logger.Warn("AgentService", "Failed to persist session", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}
}

func (s *AgentService) finishSession(ctx context.Context, state *store.State, kind string) {
	status := entity.SessionStatusCompleted
	if state.Error != "" {
		status = entity.SessionStatusFailed
	}

	session := snapshotSession(state, kind, status)
	s.activeRepo.Save(session)
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.logger.Warn("AgentService", "Failed to update session", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}

	s.publishAudit(ctx, state, kind, status)
}

func (s *AgentService) publishAudit(ctx context.Context, state *store.State, kind, status string) {
	if s.auditPub == nil {
		return
	}

	eventType := events.TypeRAGRunCompleted
	switch {
	case kind == entity.SessionKindRAG && status == entity.SessionStatusFailed:
		eventType = events.TypeRAGRunFailed
	case kind == entity.SessionKindGeneration && status == entity.SessionStatusCompleted:
		eventType = events.TypeGenerationRunCompleted
	case kind == entity.SessionKindGeneration && status == entity.SessionStatusFailed:
		eventType = events.TypeGenerationRunFailed
	}

	event := events.NewPipelineEvent(eventType, state.Identity.SessionId.String(), state.Identity.UserId.String(), state.Identity.TenantId.String(), map[string]interface{}{
		"retrieval_attempts": state.RetrievalAttempts,
		"iterations":         state.IterationCount,
		"questions":          len(state.Questions),
		"error":              state.Error,
	})
	if err := s.auditPub.Publish(ctx, event); err != nil {
		s.logger.Warn("AgentService", "Failed to publish audit event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

func (s *AgentService) answerCacheKey(tenantId uuid.UUID, req *dto.RAGQueryRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Query))
	for _, id := range req.DocumentIds {
		h.Write([]byte(id.String()))
	}
	return fmt.Sprintf("rag:answer:%s:%x", tenantId, h.Sum(nil))
}

func (s *AgentService) cachedAnswer(ctx context.Context, tenantId uuid.UUID, req *dto.RAGQueryRequest) *store.RAGResult {
	if s.redisClient == nil {
		return nil
	}

	raw, err := s.redisClient.Get(ctx, s.answerCacheKey(tenantId, req)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("AgentService", "Answer cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}

	var result store.RAGResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.Warn("AgentService", "Corrupt cached answer dropped", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return &result
}

func (s *AgentService) cacheAnswer(ctx context.Context, tenantId uuid.UUID, req *dto.RAGQueryRequest, result *store.RAGResult) {
	if s.redisClient == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, s.answerCacheKey(tenantId, req), data, s.answerCacheTTL).Err(); err != nil {
		s.logger.Warn("AgentService", "Answer cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
