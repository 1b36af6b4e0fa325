package assistant

import (
	"fmt"

	"github.com/unidatahq/udc/features/model"
	"github.com/unidatahq/udc/features/model/anthropic"
	"github.com/unidatahq/udc/features/model/openai"
)

// GeminiBaseURL is the OpenAI-compatible endpoint exposed by the Gemini API.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// SDKFactory builds provider SDK clients per turn. Gemini rides the OpenAI
// adapter pointed at Google's OpenAI-compatible endpoint.
type SDKFactory struct {
	// Models holds the default model identifier per provider.
	Models Models
	// GeminiBaseURL overrides the Gemini endpoint. Empty uses GeminiBaseURL.
	GeminiBaseURL string
}

// Client implements ClientFactory.
func (f *SDKFactory) Client(provider Provider, apiKey string) (model.Client, error) {
	switch provider {
	case ProviderOpenAI:
		return openai.NewFromAPIKey(apiKey, f.Models.OpenAI, "")
	case ProviderAnthropic:
		return anthropic.NewFromAPIKey(apiKey, f.Models.Anthropic)
	case ProviderGemini:
		base := f.GeminiBaseURL
		if base == "" {
			base = GeminiBaseURL
		}
		return openai.NewFromAPIKey(apiKey, f.Models.Gemini, base)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
