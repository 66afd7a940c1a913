package community

import (
	"fmt"

	"github.com/ruanqin/chatcore/internal/domain"
)

// Provider constants
const (
	ProviderWebhook = "webhook"
	ProviderMock    = "mock"
)

// NewClient creates a community client based on the provider name.
func NewClient(provider, webhookURL string) (domain.CommunityClient, error) {
	switch provider {
	case ProviderWebhook:
		if webhookURL == "" {
			return nil, fmt.Errorf("DISCORD_WEBHOOK_URL is required for webhook provider")
		}
		return NewWebhookClient(webhookURL), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown community provider: %s (valid options: webhook, mock)", provider)
	}
}
