package entity

// Chat mode identifiers.
const (
	ModeSimple     = "simple"
	ModeGuardrails = "guardrails"
	ModeRag        = "rag"
	ModeMultiuser  = "multiuser"
)
