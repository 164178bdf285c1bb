package service

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// rawStreamChunk is the OpenAI delta shape. reasoning_content is only sent
// by reasoning models behind NVIDIA-style gateways.
type rawStreamChunk struct {
	Choices []struct {
		Delta struct {
			Role             string  `json:"role,omitempty"`
			Content          string  `json:"content,omitempty"`
			ReasoningContent *string `json:"reasoning_content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

func decodeChunk(data []byte, withReasoning bool) (*StreamChunk, error) {
	var raw rawStreamChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) == 0 {
		return chunk, nil
	}

	choice := raw.Choices[0]
	chunk.Role = choice.Delta.Role
	chunk.Content = choice.Delta.Content
	chunk.Done = choice.FinishReason != nil && *choice.FinishReason != ""
	if withReasoning && choice.Delta.ReasoningContent != nil {
		chunk.ThinkingContent = *choice.Delta.ReasoningContent
	}
	return chunk, nil
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts a standard OpenAI chunk to a StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	return decodeChunk(data, false)
}

// NVIDIAStreamChunkParser parses chunks that may carry reasoning_content
type NVIDIAStreamChunkParser struct{}

// ParseChunk converts an NVIDIA/DeepSeek chunk to a StreamChunk
func (p *NVIDIAStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	return decodeChunk(data, true)
}

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

// IsNVIDIAProvider checks if the base URL is NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.Contains(baseURL, "integrate.api.nvidia.com")
}

func parserForBase(baseURL string) StreamChunkParser {
	switch {
	case IsNVIDIAProvider(baseURL):
		log.Info().Str("api_base", baseURL).Msg("Detected NVIDIA API provider (supports reasoning)")
		return &NVIDIAStreamChunkParser{}
	case IsOpenAIProvider(baseURL):
		log.Info().Str("api_base", baseURL).Msg("Detected OpenAI API provider")
		return &OpenAIStreamChunkParser{}
	default:
		log.Info().Str("api_base", baseURL).Msg("Using standard OpenAI stream format")
		return &OpenAIStreamChunkParser{}
	}
}
