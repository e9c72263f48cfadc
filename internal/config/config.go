package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

// PipelineConfig carries the default knobs for both pipelines; callers
// may override per request.
type PipelineConfig struct {
	MaxRetrievalAttempts     int
	RelevanceThreshold       float64
	TopK                     int
	EnableQueryRewriting     bool
	EnableHallucinationCheck bool
	QuestionCount            int
	MaxIterations            int
	ShouldReflect            bool
	AnswerCacheTTLSeconds    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Pipeline: PipelineConfig{
			MaxRetrievalAttempts:     getEnvAsInt("PIPELINE_MAX_RETRIEVAL_ATTEMPTS", 3),
			RelevanceThreshold:       getEnvAsFloat("PIPELINE_RELEVANCE_THRESHOLD", 0.7),
			TopK:                     getEnvAsInt("PIPELINE_TOP_K", 5),
			EnableQueryRewriting:     getEnvAsBool("PIPELINE_ENABLE_QUERY_REWRITING", true),
			EnableHallucinationCheck: getEnvAsBool("PIPELINE_ENABLE_HALLUCINATION_CHECK", true),
			QuestionCount:            getEnvAsInt("PIPELINE_QUESTION_COUNT", 5),
			MaxIterations:            getEnvAsInt("PIPELINE_MAX_ITERATIONS", 2),
			ShouldReflect:            getEnvAsBool("PIPELINE_SHOULD_REFLECT", false),
			AnswerCacheTTLSeconds:    getEnvAsInt("PIPELINE_ANSWER_CACHE_TTL_SECONDS", 300),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
