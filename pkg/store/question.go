package store

import "time"

// Question types supported by the generation agent.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeShortAnswer    = "short_answer"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeEssay          = "essay"
)

// Difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// SourceCitation points a question back to the material it was
// generated from.
type SourceCitation struct {
	MaterialId string `json:"material_id"`
	Location   string `json:"location,omitempty"`
}

// GeneratedQuestion is one structured item produced by the
// question-generation agent. QuestionId is unique within a run.
type GeneratedQuestion struct {
	QuestionId     string           `json:"question_id"`
	Type           string           `json:"type"`
	Difficulty     string           `json:"difficulty"`
	CognitiveLevel string           `json:"cognitive_level,omitempty"`
	Question       string           `json:"question"`
	Options        []string         `json:"options,omitempty"`
	CorrectAnswer  string           `json:"correct_answer"`
	Explanation    string           `json:"explanation,omitempty"`
	Sources        []SourceCitation `json:"sources,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	QualityScore   float64          `json:"quality_score"`
	Valid          bool             `json:"valid"`
}

// RAGResult is the immutable record handed to the caller when a RAG
// run reaches a terminal node. Exactly one of Answer/Error is set.
type RAGResult struct {
	SessionId         string              `json:"session_id"`
	Answer            string              `json:"answer,omitempty"`
	Error             string              `json:"error,omitempty"`
	Sources           []string            `json:"sources,omitempty"`
	Confidence        float64             `json:"confidence"`
	Hallucinated      bool                `json:"hallucinated"`
	RetrievalAttempts int                 `json:"retrieval_attempts"`
	ThinkingSteps     []ThinkingStep      `json:"thinking_steps,omitempty"`
	Documents         []RetrievedDocument `json:"documents,omitempty"`
	CompletedAt       time.Time           `json:"completed_at"`
}

// GenerationResult is the immutable record handed to the caller when a
// question-generation run reaches the clean-state terminal. Partial
// question sets are returned even when Error is set.
type GenerationResult struct {
	SessionId           string              `json:"session_id"`
	Questions           []GeneratedQuestion `json:"questions"`
	FollowupSuggestions []string            `json:"followup_suggestions,omitempty"`
	QueryResponse       string              `json:"query_response,omitempty"`
	Error               string              `json:"error,omitempty"`
	Iterations          int                 `json:"iterations"`
	ThinkingSteps       []ThinkingStep      `json:"thinking_steps,omitempty"`
	CompletedAt         time.Time           `json:"completed_at"`
}
