package dto

import (
	"time"

	"ai-redteam-be/internal/entity"
	"ai-redteam-be/pkg/rag"
)

type ChatRequest struct {
	Message        string `json:"message" validate:"required"`
	Mode           string `json:"mode" validate:"required"`
	ConversationId string `json:"conversation_id,omitempty"`
	SessionId      string `json:"session_id,omitempty"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	IncludeShared  *bool  `json:"include_shared,omitempty"` // multiuser only, defaults true
}

// SharedIncluded resolves the optional include_shared flag.
func (r *ChatRequest) SharedIncluded() bool {
	if r.IncludeShared == nil {
		return true
	}
	return *r.IncludeShared
}

type ChatResponse struct {
	Response       string      `json:"response"`
	ConversationId string      `json:"conversation_id"`
	Mode           string      `json:"mode"`
	Timestamp      time.Time   `json:"timestamp"`
	Metadata       interface{} `json:"metadata,omitempty"`
}

// --- Per-mode response metadata ---

// SimpleMeta is the metadata for unfiltered chat.
type SimpleMeta struct {
	Model          string  `json:"model"`
	Mode           string  `json:"mode"`
	TokensUsed     int     `json:"tokens_used"`
	ProcessingTime float64 `json:"processing_time"` // milliseconds
}

// GuardrailsBlockedMeta is returned when the input filter refuses a message.
type GuardrailsBlockedMeta struct {
	Mode             string   `json:"mode"`
	InputBlocked     bool     `json:"input_blocked"`
	RiskScore        float64  `json:"risk_score"`
	DetectedPatterns []string `json:"detected_patterns"`
}

// GuardrailsMeta is returned when a message made it through to the model.
type GuardrailsMeta struct {
	Model             string  `json:"model"`
	Mode              string  `json:"mode"`
	InputRiskScore    float64 `json:"input_risk_score"`
	ResponseRiskScore float64 `json:"response_risk_score"`
	ResponseSafe      bool    `json:"response_safe"`
	ModelRefused      bool    `json:"model_refused"`
	TokensUsed        int     `json:"tokens_used"`
	ProcessingTime    float64 `json:"processing_time"`
}

// RagMeta is the metadata for document-grounded chat.
type RagMeta struct {
	Model           string      `json:"model"`
	Mode            string      `json:"mode"`
	RetrievedChunks []rag.Chunk `json:"retrieved_chunks"`
	Sources         []string    `json:"sources"`
	TokensUsed      int         `json:"tokens_used"`
	ProcessingTime  float64     `json:"processing_time"`
}

// MultiuserMeta additionally reports what leaked across sessions.
type MultiuserMeta struct {
	Model               string      `json:"model"`
	Mode                string      `json:"mode"`
	RetrievedChunks     []rag.Chunk `json:"retrieved_chunks"`
	Sources             []string    `json:"sources"`
	CrossSessionAccess  bool        `json:"cross_session_access"`
	CrossSessionSources []string    `json:"cross_session_sources"`
	TokensUsed          int         `json:"tokens_used"`
	ProcessingTime      float64     `json:"processing_time"`
}

// --- Conversations ---

type ConversationHistoryResponse struct {
	ConversationId string                    `json:"conversation_id"`
	History        []entity.ConversationTurn `json:"history"`
}

// --- Health and modes ---

type HealthResponse struct {
	Status string `json:"status"`           // "healthy", "degraded" or "unhealthy"
	Ollama string `json:"ollama,omitempty"` // "connected" or "disconnected"
	Error  string `json:"error,omitempty"`
}

type ModeInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Architecture string `json:"architecture"`
	Details      string `json:"details"`
}

type ModesResponse struct {
	Modes map[string]ModeInfo `json:"modes"`
}
