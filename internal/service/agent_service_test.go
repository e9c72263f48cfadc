package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"ai-edulab-be/internal/dto"
	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/repository/memory"
	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/qgen"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	generate func(prompt string) (string, error)
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return f.generate(last)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.generate(prompt)
}

const threeQuestionArray = `[
	{"question": "What is photosynthesis?", "correct_answer": "Light to chemical energy", "type": "short_answer"},
	{"question": "Which organelle hosts it?", "options": ["Mitochondria", "Chloroplast"], "correct_answer": "Chloroplast"},
	{"question": "Is oxygen a byproduct?", "correct_answer": "true", "type": "true_false"}
]`

func generationLLM() *fakeLLM {
	return &fakeLLM{generate: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Create exactly"):
			return threeQuestionArray, nil
		case strings.Contains(prompt, "Revise the questions above"):
			return threeQuestionArray, nil
		case strings.Contains(prompt, "Suggest up to 3"):
			return `["Make question 1 harder"]`, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

// recordingSessionRepo counts write-behind calls.
type recordingSessionRepo struct {
	mu        sync.Mutex
	creates   int
	updates   int
	appends   []store.GeneratedQuestion
	appendErr error
	rows      map[string]*entity.GenerationSession
}

func newRecordingSessionRepo() *recordingSessionRepo {
	return &recordingSessionRepo{rows: make(map[string]*entity.GenerationSession)}
}

func (r *recordingSessionRepo) Create(ctx context.Context, session *entity.GenerationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	copied := *session
	r.rows[session.Id.String()] = &copied
	return nil
}

func (r *recordingSessionRepo) Update(ctx context.Context, session *entity.GenerationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	copied := *session
	r.rows[session.Id.String()] = &copied
	return nil
}

func (r *recordingSessionRepo) AppendQuestion(ctx context.Context, sessionId, userId, tenantId uuid.UUID, question store.GeneratedQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.appends = append(r.appends, question)
	if row, ok := r.rows[sessionId.String()]; ok {
		row.Questions = append(row.Questions, question)
	}
	return nil
}

func (r *recordingSessionRepo) FindOne(ctx context.Context, sessionId, userId, tenantId uuid.UUID) (*entity.GenerationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[sessionId.String()]
	if !ok {
		return nil, nil
	}
	return row, nil
}

type fakeMaterialRepo struct{}

func (fakeMaterialRepo) FindOne(ctx context.Context, tenantId, id uuid.UUID) (*entity.Material, error) {
	return nil, nil
}

func (fakeMaterialRepo) FindByIds(ctx context.Context, tenantId uuid.UUID, ids []uuid.UUID) ([]*entity.Material, error) {
	return nil, nil
}

// recordingLogger captures structured log calls.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Info(module, message string, details map[string]interface{})  {}
func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Sync() error                                                  { return nil }

func (l *recordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, module+": "+message)
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

type failingAuditPub struct{}

func (failingAuditPub) Publish(ctx context.Context, event events.Event) error {
	return errors.New("broker unavailable")
}

func newTestService(t *testing.T, sessionRepo *recordingSessionRepo, logs *recordingLogger) IAgentService {
	t.Helper()

	sink := NewPersistingSink(events.NopSink{}, sessionRepo, logs)
	agent, err := qgen.NewAgent(generationLLM(), sink, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	return NewAgentService(
		nil,
		agent,
		fakeMaterialRepo{},
		sessionRepo,
		memory.NewSessionRepository(),
		nil,
		nil,
		0,
		store.DefaultPipelineConfig(),
		logs,
	)
}

func TestGenerationAppendsQuestionsToSessionLog(t *testing.T) {
	sessionRepo := newRecordingSessionRepo()
	svc := newTestService(t, sessionRepo, &recordingLogger{})

	resp, err := svc.GenerateQuestions(context.Background(), uuid.New(), uuid.New(), &dto.GenerateQuestionsRequest{
		Prompt: "photosynthesis basics",
	})
	require.NoError(t, err)

	require.Len(t, resp.Result.Questions, 3)
	assert.Equal(t, 1, sessionRepo.creates)
	require.Len(t, sessionRepo.appends, 3)
	assert.Equal(t, resp.Result.Questions[0].QuestionId, sessionRepo.appends[0].QuestionId)
}

func TestContinuedSessionUpdatesInsteadOfRecreating(t *testing.T) {
	sessionRepo := newRecordingSessionRepo()
	svc := newTestService(t, sessionRepo, &recordingLogger{})

	userId := uuid.New()
	tenantId := uuid.New()

	first, err := svc.GenerateQuestions(context.Background(), userId, tenantId, &dto.GenerateQuestionsRequest{
		Prompt: "photosynthesis basics",
	})
	require.NoError(t, err)
	require.Equal(t, 1, sessionRepo.creates)

	sessionId, err := uuid.Parse(first.Result.SessionId)
	require.NoError(t, err)

	second, err := svc.GenerateQuestions(context.Background(), userId, tenantId, &dto.GenerateQuestionsRequest{
		Prompt:    "make them harder",
		SessionId: &sessionId,
	})
	require.NoError(t, err)

	assert.Equal(t, sessionId.String(), second.Result.SessionId)
	assert.Equal(t, 1, sessionRepo.creates, "continuation must not insert a second row")
	assert.GreaterOrEqual(t, sessionRepo.updates, 2)
}

func TestPersistingSinkIgnoresNonQuestionEvents(t *testing.T) {
	sessionRepo := newRecordingSessionRepo()
	forwarded := 0
	sink := NewPersistingSink(sinkFunc(func(events.EventKind, map[string]interface{}) { forwarded++ }), sessionRepo, &recordingLogger{})

	sink.Emit(events.KindThinking, map[string]interface{}{"step": "grading"})

	assert.Equal(t, 1, forwarded)
	assert.Empty(t, sessionRepo.appends)
}

func TestPersistingSinkAppendFailureOnlyWarns(t *testing.T) {
	sessionRepo := newRecordingSessionRepo()
	sessionRepo.appendErr = errors.New("connection reset")
	logs := &recordingLogger{}
	forwarded := 0
	sink := NewPersistingSink(sinkFunc(func(events.EventKind, map[string]interface{}) { forwarded++ }), sessionRepo, logs)

	sink.Emit(events.KindQuestionComplete, map[string]interface{}{
		"session_id": uuid.New(),
		"user_id":    uuid.New(),
		"tenant_id":  uuid.New(),
		"question":   store.GeneratedQuestion{QuestionId: "q1", Question: "What is light?"},
	})

	assert.Equal(t, 1, forwarded)
	assert.Equal(t, 1, logs.warnCount())
}

func TestAuditPublishFailureOnlyWarns(t *testing.T) {
	logs := &recordingLogger{}
	svc := &AgentService{
		auditPub: failingAuditPub{},
		logger:   logs,
	}

	state := store.NewState(store.Identity{
		SessionId: uuid.New(),
		UserId:    uuid.New(),
		TenantId:  uuid.New(),
	}, store.DefaultPipelineConfig())

	svc.publishAudit(context.Background(), state, entity.SessionKindGeneration, entity.SessionStatusCompleted)

	assert.Equal(t, 1, logs.warnCount())
}

// sinkFunc adapts a function to the stream sink contract.
type sinkFunc func(kind events.EventKind, payload map[string]interface{})

func (f sinkFunc) Emit(kind events.EventKind, payload map[string]interface{}) { f(kind, payload) }
