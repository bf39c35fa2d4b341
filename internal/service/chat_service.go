package service

import (
	"context"
	"time"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/internal/repository/contract"
	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/guardrail"
	"ai-redteam-be/pkg/llm"
	"ai-redteam-be/pkg/rag"

	"github.com/google/uuid"
)

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, mode, conversationId string) (*dto.ConversationHistoryResponse, error)
	ClearConversation(ctx context.Context, mode, conversationId string) error
	Modes() *dto.ModesResponse
}

// Retrieval strategies a mode can run before the model call.
const (
	retrievalNone    = ""
	retrievalSession = "session"
	retrievalShared  = "shared"
)

// modePipeline describes what one chat mode does around the model call.
type modePipeline struct {
	info         dto.ModeInfo
	inputFilter  bool
	outputFilter bool
	retrieval    string
	systemPrompt string // fixed preamble, e.g. the guardrails safety prompt
	customPrompt bool   // honor the request's system_prompt override
}

func defaultPipelines() map[string]modePipeline {
	return map[string]modePipeline{
		entity.ModeSimple: {
			info: dto.ModeInfo{
				Name:         "Simple LLM",
				Description:  "Direct interaction with phi3:mini for prompt injection testing",
				Architecture: "User Input → phi3:mini → Response",
				Details:      "Test basic prompt injections, jailbreaks, and adversarial inputs directly against the base model.",
			},
			customPrompt: true,
		},
		entity.ModeGuardrails: {
			info: dto.ModeInfo{
				Name:         "Guardrails Testing",
				Description:  "LLM with safety guardrails that can be tested for bypass attempts",
				Architecture: "User Input → Safety Filter → phi3:mini → Response Filter → Response",
				Details:      "Test guardrail bypass techniques including role-playing, encoding, and social engineering.",
			},
			inputFilter:  true,
			outputFilter: true,
			systemPrompt: guardrail.SafetySystemPrompt,
		},
		entity.ModeRag: {
			info: dto.ModeInfo{
				Name:         "RAG Setup",
				Description:  "Retrieval-Augmented Generation with user-uploaded documents",
				Architecture: "User Input → Vector Search → Document Chunks → phi3:mini + Context → Response",
				Details:      "Test information extraction, context manipulation, and document-based prompt injection.",
			},
			retrieval: retrievalSession,
		},
		entity.ModeMultiuser: {
			info: dto.ModeInfo{
				Name:         "Multi-User Chat",
				Description:  "Cross-session document access and sharing capabilities",
				Architecture: "User Input → Shared Vector Store → Document Retrieval → phi3:mini → Response",
				Details:      "Test cross-user information leakage and session isolation bypasses.",
			},
			retrieval: retrievalShared,
		},
	}
}

type chatService struct {
	provider      llm.LLMProvider
	modelName     string
	analyzer      *guardrail.Analyzer
	retriever     *rag.Retriever
	conversations map[string]contract.ConversationRepository
	publisher     IPublisherService
	topK          int
	sharedTopK    int
	logger        logger.ILogger
	pipelines     map[string]modePipeline
}

// NewChatService wires the mode pipelines. conversations must hold one
// repository per mode so histories stay isolated. topK bounds rag retrieval,
// sharedTopK the multiuser session+shared budget.
func NewChatService(
	provider llm.LLMProvider,
	modelName string,
	analyzer *guardrail.Analyzer,
	retriever *rag.Retriever,
	conversations map[string]contract.ConversationRepository,
	publisher IPublisherService,
	topK, sharedTopK int,
	logger logger.ILogger,
) IChatService {
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	if sharedTopK <= 0 {
		sharedTopK = rag.DefaultSharedTopK
	}
	return &chatService{
		provider:      provider,
		modelName:     modelName,
		analyzer:      analyzer,
		retriever:     retriever,
		conversations: conversations,
		publisher:     publisher,
		topK:          topK,
		sharedTopK:    sharedTopK,
		logger:        logger,
		pipelines:     defaultPipelines(),
	}
}

func (c *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	pipeline, ok := c.pipelines[req.Mode]
	if !ok {
		return nil, apperr.ErrInvalidMode
	}
	repo := c.conversations[req.Mode]

	conversationId := req.ConversationId
	if conversationId == "" {
		conversationId = uuid.New().String()
	}
	sessionId := req.SessionId
	if sessionId == "" && pipeline.retrieval != retrievalNone {
		sessionId = uuid.New().String()
	}

	userTurn := entity.ConversationTurn{
		Role:      entity.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
	}

	var inputAnalysis guardrail.InputAnalysis
	if pipeline.inputFilter {
		inputAnalysis = c.analyzer.AnalyzeInput(req.Message)
		userTurn.Metadata = map[string]interface{}{"risk_analysis": inputAnalysis}

		if !inputAnalysis.Allowed {
			return c.refuse(ctx, repo, req.Mode, conversationId, userTurn, inputAnalysis)
		}
	}

	// Retrieval runs against the raw message; the stored turn stays raw too.
	// Only the prompt sent to the model carries the injected context.
	var chunks []rag.Chunk
	var ragCtx rag.Context
	switch pipeline.retrieval {
	case retrievalSession:
		chunks = c.retriever.Retrieve(ctx, req.Message, sessionId, c.topK)
		ragCtx = rag.BuildDocumentContext(chunks)
	case retrievalShared:
		chunks = c.retriever.RetrieveShared(ctx, req.Message, sessionId, req.SharedIncluded(), c.sharedTopK)
		ragCtx = rag.BuildSharedContext(chunks)
	}

	history, err := repo.Get(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	// The user turn is recorded before the model call, so a failed call
	// still leaves the attempt in the history.
	if err := repo.Append(ctx, conversationId, userTurn); err != nil {
		return nil, err
	}

	systemPrompt := pipeline.systemPrompt
	if systemPrompt == "" && pipeline.customPrompt {
		systemPrompt = req.SystemPrompt
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: entity.RoleSystem, Content: systemPrompt})
	}
	for _, turn := range history {
		if turn.Role == entity.RoleSystem {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: entity.RoleUser, Content: ragCtx.Augment(req.Message)})

	result, err := c.provider.Chat(ctx, messages)
	if err != nil {
		c.logger.Error("CHAT", "Model call failed", map[string]interface{}{
			"mode":            req.Mode,
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
		return nil, err
	}

	var outputAnalysis guardrail.OutputAnalysis
	if pipeline.outputFilter {
		outputAnalysis = c.analyzer.AnalyzeOutput(result.Content)
		if !outputAnalysis.Safe {
			c.publisher.PublishUnsafeOutput(ctx, req.Mode, conversationId, outputAnalysis.RiskScore)
		}
	}

	if err := repo.Append(ctx, conversationId, c.assistantTurn(pipeline, result.Content, outputAnalysis, chunks, ragCtx)); err != nil {
		return nil, err
	}

	if ragCtx.CrossSession() {
		c.logger.Warn("CHAT", "Cross-session content retrieved", map[string]interface{}{
			"session_id":            sessionId,
			"conversation_id":       conversationId,
			"cross_session_sources": ragCtx.CrossSessionSources,
		})
		c.publisher.PublishCrossSessionLeak(ctx, sessionId, conversationId, ragCtx.CrossSessionSources)
	}

	return &dto.ChatResponse{
		Response:       result.Content,
		ConversationId: conversationId,
		Mode:           req.Mode,
		Timestamp:      time.Now(),
		Metadata:       c.buildMeta(req.Mode, result, inputAnalysis, outputAnalysis, chunks, ragCtx),
	}, nil
}

// refuse short-circuits a blocked message: the canned refusal is recorded as
// the assistant turn and the model is never called.
func (c *chatService) refuse(
	ctx context.Context,
	repo contract.ConversationRepository,
	mode, conversationId string,
	userTurn entity.ConversationTurn,
	analysis guardrail.InputAnalysis,
) (*dto.ChatResponse, error) {
	if err := repo.Append(ctx, conversationId, userTurn); err != nil {
		return nil, err
	}
	refusal := entity.ConversationTurn{
		Role:      entity.RoleAssistant,
		Content:   guardrail.RefusalMessage,
		Timestamp: time.Now(),
		Metadata: map[string]interface{}{
			"filtered":            true,
			"original_risk_score": analysis.RiskScore,
		},
	}
	if err := repo.Append(ctx, conversationId, refusal); err != nil {
		return nil, err
	}

	c.logger.Warn("CHAT", "Input blocked by guardrails", map[string]interface{}{
		"conversation_id":   conversationId,
		"risk_score":        analysis.RiskScore,
		"detected_patterns": analysis.DetectedPatterns,
	})
	c.publisher.PublishInputBlocked(ctx, mode, conversationId, analysis.RiskScore, analysis.DetectedPatterns)

	return &dto.ChatResponse{
		Response:       guardrail.RefusalMessage,
		ConversationId: conversationId,
		Mode:           mode,
		Timestamp:      time.Now(),
		Metadata: dto.GuardrailsBlockedMeta{
			Mode:             mode,
			InputBlocked:     true,
			RiskScore:        analysis.RiskScore,
			DetectedPatterns: nonNilStrings(analysis.DetectedPatterns),
		},
	}, nil
}

func (c *chatService) assistantTurn(
	pipeline modePipeline,
	content string,
	outputAnalysis guardrail.OutputAnalysis,
	chunks []rag.Chunk,
	ragCtx rag.Context,
) entity.ConversationTurn {
	turn := entity.ConversationTurn{
		Role:      entity.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
	switch {
	case pipeline.outputFilter:
		turn.Metadata = map[string]interface{}{"response_analysis": outputAnalysis}
	case pipeline.retrieval == retrievalSession:
		turn.Metadata = map[string]interface{}{
			"rag_context": map[string]interface{}{
				"retrieved_chunks": len(chunks),
				"sources":          ragCtx.Sources,
			},
		}
	case pipeline.retrieval == retrievalShared:
		turn.Metadata = map[string]interface{}{
			"multiuser_context": map[string]interface{}{
				"retrieved_chunks":      len(chunks),
				"sources":               ragCtx.Sources,
				"cross_session_sources": ragCtx.CrossSessionSources,
			},
		}
	}
	return turn
}

func (c *chatService) buildMeta(
	mode string,
	result *llm.ChatResult,
	inputAnalysis guardrail.InputAnalysis,
	outputAnalysis guardrail.OutputAnalysis,
	chunks []rag.Chunk,
	ragCtx rag.Context,
) interface{} {
	if chunks == nil {
		chunks = []rag.Chunk{}
	}

	switch mode {
	case entity.ModeGuardrails:
		return dto.GuardrailsMeta{
			Model:             c.modelName,
			Mode:              mode,
			InputRiskScore:    inputAnalysis.RiskScore,
			ResponseRiskScore: outputAnalysis.RiskScore,
			ResponseSafe:      outputAnalysis.Safe,
			ModelRefused:      outputAnalysis.RefusesRequest,
			TokensUsed:        result.EvalCount,
			ProcessingTime:    result.ProcessingTimeMs(),
		}
	case entity.ModeRag:
		return dto.RagMeta{
			Model:           c.modelName,
			Mode:            mode,
			RetrievedChunks: chunks,
			Sources:         nonNilStrings(ragCtx.Sources),
			TokensUsed:      result.EvalCount,
			ProcessingTime:  result.ProcessingTimeMs(),
		}
	case entity.ModeMultiuser:
		return dto.MultiuserMeta{
			Model:               c.modelName,
			Mode:                mode,
			RetrievedChunks:     chunks,
			Sources:             nonNilStrings(ragCtx.Sources),
			CrossSessionAccess:  ragCtx.CrossSession(),
			CrossSessionSources: nonNilStrings(ragCtx.CrossSessionSources),
			TokensUsed:          result.EvalCount,
			ProcessingTime:      result.ProcessingTimeMs(),
		}
	default:
		return dto.SimpleMeta{
			Model:          c.modelName,
			Mode:           mode,
			TokensUsed:     result.EvalCount,
			ProcessingTime: result.ProcessingTimeMs(),
		}
	}
}

func (c *chatService) History(ctx context.Context, mode, conversationId string) (*dto.ConversationHistoryResponse, error) {
	repo, ok := c.conversations[mode]
	if !ok {
		return nil, apperr.ErrInvalidMode
	}

	history, err := repo.Get(ctx, conversationId)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []entity.ConversationTurn{}
	}
	return &dto.ConversationHistoryResponse{
		ConversationId: conversationId,
		History:        history,
	}, nil
}

func (c *chatService) ClearConversation(ctx context.Context, mode, conversationId string) error {
	repo, ok := c.conversations[mode]
	if !ok {
		return apperr.ErrInvalidMode
	}
	return repo.Clear(ctx, conversationId)
}

func (c *chatService) Modes() *dto.ModesResponse {
	modes := make(map[string]dto.ModeInfo, len(c.pipelines))
	for mode, p := range c.pipelines {
		modes[mode] = p.info
	}
	return &dto.ModesResponse{Modes: modes}
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
