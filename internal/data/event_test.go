package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventRepo(t *testing.T) repo.EventRepo {
	t.Helper()
	r, err := NewEventRepo(filepath.Join(t.TempDir(), "nested", "shiftlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func seedUserChat(t *testing.T, r repo.EventRepo, name string) (*domain.User, *domain.Chat) {
	t.Helper()
	ctx := context.Background()

	user, err := r.UpsertUser(ctx, &domain.User{
		Provider:       domain.ProviderViber,
		ProviderUserID: "viber-" + name,
		Name:           name,
	})
	require.NoError(t, err)

	chat, err := r.UpsertChat(ctx, &domain.Chat{
		Provider:       domain.ProviderViber,
		ProviderChatID: domain.PrivateChatID("viber-" + name),
	})
	require.NoError(t, err)
	return user, chat
}

func TestEventRepo_UpsertUserKeepsID(t *testing.T) {
	r := newTestEventRepo(t)
	ctx := context.Background()

	first, err := r.UpsertUser(ctx, &domain.User{Provider: domain.ProviderSlack, ProviderUserID: "U1", Name: "Old"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := r.UpsertUser(ctx, &domain.User{Provider: domain.ProviderSlack, ProviderUserID: "U1", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := r.UpsertUser(ctx, &domain.User{Provider: domain.ProviderViber, ProviderUserID: "U1", Name: "Viber"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "same id on another provider is a different user")
}

func TestEventRepo_UpsertChatKeepsID(t *testing.T) {
	r := newTestEventRepo(t)
	ctx := context.Background()

	a, err := r.UpsertChat(ctx, &domain.Chat{Provider: domain.ProviderSlack, ProviderChatID: "C1"})
	require.NoError(t, err)
	b, err := r.UpsertChat(ctx, &domain.Chat{Provider: domain.ProviderSlack, ProviderChatID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestEventRepo_InsertIsIdempotent(t *testing.T) {
	r := newTestEventRepo(t)
	ctx := context.Background()
	user, chat := seedUserChat(t, r, "Alice")

	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	event := &domain.NewEvent{
		ChatID:          chat.ID,
		UserID:          user.ID,
		Type:            domain.EventShiftStart,
		Provider:        domain.ProviderViber,
		SourceMessageID: "5001",
		CreatedAt:       created,
	}

	require.NoError(t, r.InsertEvent(ctx, event))
	assert.ErrorIs(t, r.InsertEvent(ctx, event), repo.ErrDuplicateEvent)

	// Same message id from another provider is a different message
	slackEvent := *event
	slackEvent.Provider = domain.ProviderSlack
	require.NoError(t, r.InsertEvent(ctx, &slackEvent))

	events, err := r.ListEvents(ctx, created.Add(-time.Hour), created.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventRepo_ListEventsRangeAndOrder(t *testing.T) {
	r := newTestEventRepo(t)
	ctx := context.Background()
	user, chat := seedUserChat(t, r, "Alice")

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	inserts := []struct {
		id     string
		offset time.Duration
		typ    domain.EventType
		text   string
	}{
		{"3", 2 * time.Hour, domain.EventStatus, "On site"},
		{"1", 0, domain.EventShiftStart, "ignored for non-status"},
		{"2", time.Hour, domain.EventBreakStart, ""},
		{"4", 48 * time.Hour, domain.EventShiftEnd, ""},
	}
	for _, in := range inserts {
		require.NoError(t, r.InsertEvent(ctx, &domain.NewEvent{
			ChatID:          chat.ID,
			UserID:          user.ID,
			Type:            in.typ,
			Text:            in.text,
			Provider:        domain.ProviderViber,
			SourceMessageID: in.id,
			CreatedAt:       base.Add(in.offset),
		}))
	}

	events, err := r.ListEvents(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, domain.EventShiftStart, events[0].Type)
	assert.Equal(t, "", events[0].Text)
	assert.Equal(t, domain.EventBreakStart, events[1].Type)
	assert.Equal(t, domain.EventStatus, events[2].Type)
	assert.Equal(t, "On site", events[2].Text)
	assert.Equal(t, "Alice", events[2].UserName)
	assert.True(t, events[0].CreatedAt.Equal(base))
}

func TestEventRepo_ListUsesCurrentUserName(t *testing.T) {
	r := newTestEventRepo(t)
	ctx := context.Background()
	user, chat := seedUserChat(t, r, "Alice")

	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, r.InsertEvent(ctx, &domain.NewEvent{
		ChatID: chat.ID, UserID: user.ID, Type: domain.EventShiftStart,
		Provider: domain.ProviderViber, SourceMessageID: "1", CreatedAt: created,
	}))

	_, err := r.UpsertUser(ctx, &domain.User{Provider: domain.ProviderViber, ProviderUserID: "viber-Alice", Name: "Alice P."})
	require.NoError(t, err)

	events, err := r.ListEvents(ctx, created, created)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Alice P.", events[0].UserName)
}

func TestEventRepo_InsertRejectsUnknownUser(t *testing.T) {
	r := newTestEventRepo(t)
	_, chat := seedUserChat(t, r, "Alice")

	err := r.InsertEvent(context.Background(), &domain.NewEvent{
		ChatID: chat.ID, UserID: "missing", Type: domain.EventShiftStart,
		Provider: domain.ProviderViber, SourceMessageID: "1", CreatedAt: time.Now(),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repo.ErrDuplicateEvent)
}
