// Package llm is the remote text-generation client: one in-flight request at
// a time, bounded exponential-backoff retry for transient failures, and an
// optional in-memory response cache.
package llm

import "context"

// GenerateRequest is one chat-completion request
type GenerateRequest struct {
	// Model is the provider-qualified model identity (e.g. "openai/gpt-4o")
	Model string

	// Prompt is the full user message content
	Prompt string

	Temperature float32
	MaxTokens   int
}

// Provider generates text for a prompt. Implementations keep no per-call
// state; a failed call is safe to reissue.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate returns the model text for the request. It never returns
	// empty content with a nil error; exhausted retries and unrecoverable
	// conditions surface as *ServiceError.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
