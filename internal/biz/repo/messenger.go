package repo

import (
	"context"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
)

// Reply is an outbound bot message
type Reply struct {
	ConversationID string
	Text           string
	ShowMenu       bool // Attach the action menu (keyboard on Viber, text on Slack)
	MenuPrompt     bool // The reply is the menu prompt itself, Slack lists every action
}

// MessengerRepo sends replies through one chat provider
type MessengerRepo interface {
	// Provider returns the provider this messenger talks to
	Provider() domain.Provider

	// Send sends a reply; implementations without credentials drop it silently
	Send(ctx context.Context, reply Reply) error
}

// ProfileRepo resolves display information for provider users
type ProfileRepo interface {
	// GetProfile returns nil when the profile cannot be resolved
	GetProfile(ctx context.Context, providerUserID string) (*domain.Profile, error)
}
