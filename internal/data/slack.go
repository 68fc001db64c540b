package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/slack-go/slack"
)

const slackProfileTTL = time.Hour

// slackMenuItems is the text rendition of the reply keyboard. Each line
// is itself a phrase the free text classifier understands.
var slackMenuItems = []string{
	"Start shift",
	"Break start",
	"Break end",
	"End shift",
	"Status update",
	"menu",
}

type profileCacheEntry struct {
	profile   *domain.Profile
	expiresAt time.Time
}

// SlackRepo sends Slack replies and resolves Slack user profiles
type SlackRepo struct {
	client *slack.Client // nil when no bot token is configured
	log    *slog.Logger

	cacheMu sync.Mutex
	cache   map[string]profileCacheEntry
}

// NewSlackRepo creates a Slack repository. An empty token disables
// outbound calls: replies are dropped and profiles are not resolved.
func NewSlackRepo(botToken string, options ...slack.Option) *SlackRepo {
	r := &SlackRepo{
		log:   slog.With("component", "slack"),
		cache: make(map[string]profileCacheEntry),
	}
	if botToken != "" {
		r.client = slack.New(botToken, options...)
	}
	return r
}

var (
	_ repo.MessengerRepo = (*SlackRepo)(nil)
	_ repo.ProfileRepo   = (*SlackRepo)(nil)
)

// Provider returns slack
func (r *SlackRepo) Provider() domain.Provider {
	return domain.ProviderSlack
}

// Send posts a reply into the conversation
func (r *SlackRepo) Send(ctx context.Context, reply repo.Reply) error {
	if r.client == nil {
		return nil
	}

	if _, _, err := r.client.PostMessageContext(ctx, reply.ConversationID, slack.MsgOptionText(formatSlackText(reply), false)); err != nil {
		return fmt.Errorf("slack chat.postMessage failed: %w", err)
	}
	return nil
}

func formatSlackText(reply repo.Reply) string {
	switch {
	case reply.MenuPrompt:
		lines := make([]string, 0, len(slackMenuItems)+1)
		lines = append(lines, reply.Text)
		for _, item := range slackMenuItems {
			lines = append(lines, "- "+item)
		}
		return strings.Join(lines, "\n")
	case reply.ShowMenu:
		return reply.Text + "\n\nType \"menu\" to see options."
	default:
		return reply.Text
	}
}

// GetProfile looks up a Slack user's display name, cached for an hour.
// Failed lookups are cached too so a broken token does not hammer the API.
func (r *SlackRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if r.client == nil {
		return nil, nil
	}

	now := time.Now()
	r.cacheMu.Lock()
	if entry, ok := r.cache[userID]; ok && entry.expiresAt.After(now) {
		r.cacheMu.Unlock()
		return entry.profile, nil
	}
	r.cacheMu.Unlock()

	profile, err := r.fetchProfile(ctx, userID)
	if err != nil {
		r.log.Warn("users.info failed", "user", userID, "error", err)
	}

	r.cacheMu.Lock()
	r.cache[userID] = profileCacheEntry{profile: profile, expiresAt: now.Add(slackProfileTTL)}
	r.cacheMu.Unlock()

	return profile, nil
}

func (r *SlackRepo) fetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := r.client.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := firstNonEmpty(
		user.Profile.DisplayName,
		user.Profile.RealName,
		user.RealName,
		user.Name,
		user.ID,
	)
	avatar := firstNonEmpty(user.Profile.Image192, user.Profile.Image72)

	return &domain.Profile{Name: name, AvatarURL: avatar}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
