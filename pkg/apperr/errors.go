package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for quick errors.Is checks across layers.
var (
	ErrInvalidMode        = errors.New("invalid chat mode")
	ErrInvalidDriver      = errors.New("invalid store driver")
	ErrConversationClosed = errors.New("conversation store closed")
)

// ExtractionError means a file's content could not be turned into text.
// It aborts the upload of that file only, never the whole batch.
type ExtractionError struct {
	Filename string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

func NewExtractionError(filename string, cause error) *ExtractionError {
	return &ExtractionError{Filename: filename, Cause: cause}
}

// ConfigurationError covers invalid tuning parameters (e.g. a chunk
// window no larger than its overlap, which would never advance).
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Reason)
}

func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ModelUnavailable means the language model endpoint failed at transport
// level or answered non-2xx. The chat turn is aborted; no assistant turn
// is recorded.
type ModelUnavailable struct {
	Endpoint string
	Cause    error
}

func (e *ModelUnavailable) Error() string {
	return fmt.Sprintf("model endpoint %s unavailable: %v", e.Endpoint, e.Cause)
}

func (e *ModelUnavailable) Unwrap() error {
	return e.Cause
}

func NewModelUnavailable(endpoint string, cause error) *ModelUnavailable {
	return &ModelUnavailable{Endpoint: endpoint, Cause: cause}
}

// VectorStoreError wraps a namespace operation failure. Indexing treats
// it as fatal for the affected document; retrieval degrades to empty
// results instead of failing the turn.
type VectorStoreError struct {
	Namespace string
	Op        string
	Cause     error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s on %s: %v", e.Op, e.Namespace, e.Cause)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Cause
}

func NewVectorStoreError(namespace, op string, cause error) *VectorStoreError {
	return &VectorStoreError{Namespace: namespace, Op: op, Cause: cause}
}

// IsModelUnavailable reports whether err (or anything it wraps) is a
// model endpoint failure. Controllers map this to 502.
func IsModelUnavailable(err error) bool {
	var mu *ModelUnavailable
	return errors.As(err, &mu)
}
