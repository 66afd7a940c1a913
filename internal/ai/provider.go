package ai

import (
	"fmt"

	"github.com/ruanqin/chatcore/internal/domain"
)

// Provider constants
const (
	ProviderQwen   = "qwen"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient creates an AI client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(provider, apiKey, apiURL string) (domain.AIClient, error) {
	switch provider {
	case ProviderQwen:
		if apiKey == "" {
			return nil, fmt.Errorf("QWEN_API_KEY is required for qwen provider")
		}
		return NewQwenClient(apiKey, apiURL), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider: %s (valid options: qwen, openai, mock)", provider)
	}
}
