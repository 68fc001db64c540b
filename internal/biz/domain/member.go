package domain

import "time"

// Provider identifies the chat platform a message came from
type Provider string

const (
	ProviderViber Provider = "viber"
	ProviderSlack Provider = "slack"
)

// User is a chat user as known to one provider
type User struct {
	ID             string
	Provider       Provider
	ProviderUserID string
	Name           string
	AvatarURL      string
}

// Chat is a conversation (group or private) on one provider
type Chat struct {
	ID             string
	Provider       Provider
	ProviderChatID string
}

// PrivateChatID is the chat key used when a message has no group chat id
func PrivateChatID(providerUserID string) string {
	return "private:" + providerUserID
}

// Profile is the display information resolved for a provider user
type Profile struct {
	Name      string
	AvatarURL string
}

// PendingStatus marks that the next message from a user is status text
type PendingStatus struct {
	ExpiresAt time.Time
}

// Expired reports whether the marker is no longer valid at now
func (p PendingStatus) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PendingKey ties pending state to provider, chat and user
func PendingKey(provider Provider, providerChatID, providerUserID string) string {
	if providerChatID == "" {
		providerChatID = "private"
	}
	return string(provider) + "::" + providerChatID + "::" + providerUserID
}
