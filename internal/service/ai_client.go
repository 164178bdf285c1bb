package service

import (
	"context"
	"errors"
)

// ErrAIDisabled is returned by AI calls when no API key is configured
var ErrAIDisabled = errors.New("OpenAI API is not enabled (missing API key)")

// AIClient is the interface for AI service providers
type AIClient interface {
	// ChatCompletion runs a non-streaming chat completion
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ChatCompletionStream runs a chat completion, invoking callback per chunk
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error

	// CreateEmbeddings generates embeddings for texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	Role string
	Done bool
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
