package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// ChatResult carries the reply plus the usage counters the backend
// reports. EvalDuration is in nanoseconds, as Ollama reports it.
type ChatResult struct {
	Content      string
	EvalCount    int
	EvalDuration int64
}

// ProcessingTimeMs converts the backend's eval duration to milliseconds.
func (r *ChatResult) ProcessingTimeMs() float64 {
	return float64(r.EvalDuration) / 1e6
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	// with usage counters
	Chat(ctx context.Context, history []Message, options ...Option) (*ChatResult, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (*ChatResult, error)
}

// Pinger is implemented by providers whose backend exposes a liveness
// endpoint. The health check degrades gracefully when it is absent.
type Pinger interface {
	Ping(ctx context.Context) error
}
