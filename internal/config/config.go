package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Ai            AIConfig
	VectorStore   VectorStoreConfig
	Conversations ConversationConfig
	Guardrails    GuardrailConfig
	Rag           RagConfig
	Events        EventsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string // e.g. "phi3:mini"
	LLMTimeoutSeconds int
	HuggingFaceKey    string
	EmbeddingProvider string // "ollama" or "local"
	OllamaBaseURL     string
	EmbeddingModel    string
}

type VectorStoreConfig struct {
	Driver    string // "memory", "pgvector" or "qdrant"
	QdrantURL string
	QdrantKey string
	Dimension int
}

type ConversationConfig struct {
	Driver     string // "memory" or "redis"
	TTLMinutes int    // 0 keeps conversations until cleared
}

type GuardrailConfig struct {
	RulesetPath string // optional YAML override for the built-in rules
}

type RagConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	SharedTopK   int
	UploadDir    string
}

type EventsConfig struct {
	Topic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "phi3:mini"),
			LLMTimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
			HuggingFaceKey:    getEnv("HF_API_KEY", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		VectorStore: VectorStoreConfig{
			Driver:    getEnv("VECTOR_DRIVER", "memory"),
			QdrantURL: getEnv("QDRANT_URL", "localhost:6334"),
			QdrantKey: getEnv("QDRANT_API_KEY", ""),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
		},
		Conversations: ConversationConfig{
			Driver:     getEnv("CONVERSATION_DRIVER", "memory"),
			TTLMinutes: getEnvAsInt("CONVERSATION_TTL_MINUTES", 0),
		},
		Guardrails: GuardrailConfig{
			RulesetPath: getEnv("GUARDRAIL_RULESET_PATH", ""),
		},
		Rag: RagConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 50),
			TopK:         getEnvAsInt("RAG_TOP_K", 3),
			SharedTopK:   getEnvAsInt("SHARED_TOP_K", 5),
			UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		},
		Events: EventsConfig{
			Topic: getEnv("SECURITY_EVENTS_TOPIC_NAME", "SECURITY_EVENTS"),
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
