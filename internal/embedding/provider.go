package embedding

import (
	"fmt"

	"github.com/Harshitk-cp/substrate/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// DefaultDimensions is the essence size produced by both providers unless
// configured otherwise.
const DefaultDimensions = 256

// NewClient creates an encoder for the named provider. Every vector it
// returns has dims components.
func NewClient(provider, apiKey string, dims int) (domain.EmbeddingClient, error) {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey, dims), nil

	case ProviderMock:
		return NewMockClient(dims), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock)", provider)
	}
}
