package store

import (
	"time"

	"github.com/google/uuid"
)

// Identity ties a pipeline run to its caller. TenantId scopes every
// retrieval query; SessionId keys the write-behind persistence log.
type Identity struct {
	SessionId uuid.UUID `json:"session_id"`
	UserId    uuid.UUID `json:"user_id"`
	TenantId  uuid.UUID `json:"tenant_id"`
}

// PipelineConfig is the immutable per-run configuration. It is copied
// into the state at construction time and never mutated by nodes.
type PipelineConfig struct {
	MaxRetrievalAttempts     int     `json:"max_retrieval_attempts"`
	RelevanceThreshold       float64 `json:"relevance_threshold"`
	TopK                     int     `json:"top_k"`
	EnableQueryRewriting     bool    `json:"enable_query_rewriting"`
	EnableHallucinationCheck bool    `json:"enable_hallucination_check"`
	QuestionCount            int     `json:"question_count"`
	MaxIterations            int     `json:"max_iterations"`
	ShouldReflect            bool    `json:"should_reflect"`
}

// DefaultPipelineConfig returns the configuration used when the caller
// does not override anything.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxRetrievalAttempts:     3,
		RelevanceThreshold:       0.7,
		TopK:                     5,
		EnableQueryRewriting:     true,
		EnableHallucinationCheck: true,
		QuestionCount:            5,
		MaxIterations:            2,
		ShouldReflect:            false,
	}
}

// ThinkingStep is one entry of the append-only diagnostic trace. It is
// never read by routing logic.
type ThinkingStep struct {
	StepType  string    `json:"step_type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NextAction values drive the conditional edges between nodes.
const (
	ActionRetrieve = "RETRIEVE"
	ActionGrade    = "GRADE"
	ActionRewrite  = "REWRITE"
	ActionGenerate = "GENERATE"
	ActionCheck    = "CHECK"
	ActionComplete = "COMPLETE"
	ActionFail     = "FAIL"

	ActionFollowup = "FOLLOWUP"
	ActionReflect  = "REFLECT"
	ActionClean    = "CLEAN"
)

// Artifact operations selected by the question-generation router.
const (
	OpGenerate     = "GENERATE_QUESTIONS"
	OpUpdate       = "UPDATE_QUESTIONS"
	OpRewrite      = "REWRITE_QUESTION"
	OpRewriteTheme = "REWRITE_THEME"
	OpRespond      = "RESPOND_QUERY"
)

// QueryAnalysis is the output of the query-analyzer node.
type QueryAnalysis struct {
	Intent      string   `json:"intent"`
	KeyConcepts []string `json:"key_concepts"`
	Complexity  string   `json:"complexity"`
}

// RetrievedDocument is a single candidate chunk from the retrieval
// service. Relevant is set by the grading node.
type RetrievedDocument struct {
	Content    string                 `json:"content"`
	SourceId   string                 `json:"source_id"`
	SourceName string                 `json:"source_name"`
	Page       int                    `json:"page,omitempty"`
	ChunkIndex int                    `json:"chunk_index"`
	Score      float64                `json:"score"`
	Relevant   bool                   `json:"relevant"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RAGGeneration carries the generated answer plus verification
// metadata. Hallucinated is advisory only; the pipeline still
// completes when it is true.
type RAGGeneration struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	Sources      []string `json:"sources"`
	Hallucinated bool     `json:"hallucinated"`
	Checked      bool     `json:"checked"`
}

// ReflectionResult is the self-critique verdict for a generated
// artifact.
type ReflectionResult struct {
	ShouldRegenerate bool    `json:"should_regenerate"`
	Critique         string  `json:"critique"`
	QualityScore     float64 `json:"quality_score"`
}

// MaterialContent is the source text a question is generated from.
// Loaded once per run before the graph starts.
type MaterialContent struct {
	Id      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Content string    `json:"content"`
}

// Artifact is the working draft being generated or edited.
type Artifact struct {
	Theme     string              `json:"theme"`
	Questions []GeneratedQuestion `json:"questions"`
}

// State is the single mutable object threaded through a pipeline run.
// It is constructed immediately before the entry node, mutated in
// place by each node, and discarded once a terminal node is reached.
type State struct {
	Identity Identity
	Config   PipelineConfig

	// Working memory
	OriginalInput string
	CurrentQuery  string
	ThinkingSteps []ThinkingStep

	// RAG pipeline fields
	DocumentIds       []uuid.UUID
	Analysis          *QueryAnalysis
	RetrievedDocuments []RetrievedDocument
	RelevantDocuments  []RetrievedDocument
	RetrievalAttempts  int
	GeneratedAnswer    string
	Generation         *RAGGeneration

	// Question-generation fields
	TargetQuestionId    string
	UserQuery           string
	NewTheme            string
	Materials           []MaterialContent
	Questions           []GeneratedQuestion
	Artifact            *Artifact
	FollowupSuggestions []string
	Reflection          *ReflectionResult
	QueryResponse       string
	RouteOp             string
	IterationCount      int

	// Control flow
	NextAction  string
	Error       string
	CompletedAt *time.Time
}

// NewState builds a fresh state for one pipeline run.
func NewState(identity Identity, cfg PipelineConfig) *State {
	return &State{
		Identity:      identity,
		Config:        cfg,
		ThinkingSteps: []ThinkingStep{},
	}
}

// AddThinkingStep appends a diagnostic entry. The log only grows; it
// is never truncated or reordered.
func (s *State) AddThinkingStep(stepType, content string) {
	s.ThinkingSteps = append(s.ThinkingSteps, ThinkingStep{
		StepType:  stepType,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// Fail records a terminal error message and routes to the Fail
// terminal. An earlier error message wins.
func (s *State) Fail(msg string) {
	if s.Error == "" {
		s.Error = msg
	}
	s.NextAction = ActionFail
}

// Complete stamps the terminal timestamp.
func (s *State) Complete() {
	now := time.Now()
	s.CompletedAt = &now
}
