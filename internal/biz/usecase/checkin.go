package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/pinetree-ops/shiftlog/internal/conf"
)

// IncomingMessage is one inbound chat message, already decoded by a webhook
type IncomingMessage struct {
	Provider        domain.Provider
	ProviderUserID  string
	UserName        string
	AvatarURL       string
	ProviderChatID  string // Empty for one-to-one conversations
	ConversationID  string // Where replies go
	Text            string
	SourceMessageID string
	RawPayload      []byte
	CreatedAt       time.Time
}

// CheckinUsecase turns inbound messages into attendance events and replies
type CheckinUsecase struct {
	eventRepo   repo.EventRepo
	pendingRepo repo.PendingStatusRepo
	messengers  map[domain.Provider]repo.MessengerRepo
	replies     *conf.RepliesConfig
	pendingTTL  time.Duration
	log         *slog.Logger

	// Users that already got the menu after an unrecognized message
	seenMu sync.Mutex
	seen   map[string]struct{}
}

// NewCheckinUsecase creates a new check-in usecase
func NewCheckinUsecase(
	eventRepo repo.EventRepo,
	pendingRepo repo.PendingStatusRepo,
	messengers []repo.MessengerRepo,
	replies *conf.RepliesConfig,
	pendingTTL time.Duration,
) *CheckinUsecase {
	if replies == nil {
		replies = conf.DefaultRepliesConfig()
	}
	byProvider := make(map[domain.Provider]repo.MessengerRepo, len(messengers))
	for _, m := range messengers {
		byProvider[m.Provider()] = m
	}
	return &CheckinUsecase{
		eventRepo:   eventRepo,
		pendingRepo: pendingRepo,
		messengers:  byProvider,
		replies:     replies,
		pendingTTL:  pendingTTL,
		log:         slog.With("component", "checkin"),
		seen:        make(map[string]struct{}),
	}
}

// HandleMessage processes one inbound message. Only storage failures are
// returned; reply failures are logged.
func (uc *CheckinUsecase) HandleMessage(ctx context.Context, msg *IncomingMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	key := domain.PendingKey(msg.Provider, msg.ProviderChatID, msg.ProviderUserID)

	// 1. A pending status prompt swallows the next message whatever it says
	if uc.pendingRepo.ConsumeIfPending(key) {
		if err := uc.record(ctx, msg, domain.EventStatus, msg.Text); err != nil {
			// Keep the prompt open so a redelivery is still read as status
			uc.pendingRepo.SetPending(key, uc.pendingTTL)
			return err
		}
		uc.reply(ctx, msg, repo.Reply{Text: uc.replies.StatusSavedText(msg.Text), ShowMenu: true})
		return nil
	}

	// 2. Classify
	switch result := domain.Classify(msg.Text, SourceHintFor(msg.Text)).(type) {
	case domain.ShowMenu:
		uc.reply(ctx, msg, repo.Reply{Text: uc.replies.MenuPrompt, MenuPrompt: true})

	case domain.StatusPending:
		uc.pendingRepo.SetPending(key, uc.pendingTTL)
		uc.reply(ctx, msg, repo.Reply{Text: uc.replies.StatusPrompt})

	case domain.ParsedEvent:
		if err := uc.record(ctx, msg, result.Type, result.Text); err != nil {
			return err
		}
		uc.reply(ctx, msg, repo.Reply{Text: uc.replies.Confirmation(result.Type), ShowMenu: true})

	default:
		if uc.firstContact(key) {
			uc.reply(ctx, msg, repo.Reply{Text: uc.replies.MenuPrompt, MenuPrompt: true})
		}
	}
	return nil
}

// SourceHintFor derives how a message was produced from its text alone
func SourceHintFor(text string) domain.SourceHint {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "/"):
		return domain.SourceCommand
	case strings.EqualFold(trimmed, "menu"):
		return domain.SourceUnknown
	case domain.IsButtonLabel(trimmed):
		return domain.SourceButton
	default:
		return domain.SourceFreeText
	}
}

func (uc *CheckinUsecase) record(ctx context.Context, msg *IncomingMessage, eventType domain.EventType, text string) error {
	user, err := uc.eventRepo.UpsertUser(ctx, &domain.User{
		Provider:       msg.Provider,
		ProviderUserID: msg.ProviderUserID,
		Name:           msg.UserName,
		AvatarURL:      msg.AvatarURL,
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	chatID := msg.ProviderChatID
	if chatID == "" {
		chatID = domain.PrivateChatID(msg.ProviderUserID)
	}
	chat, err := uc.eventRepo.UpsertChat(ctx, &domain.Chat{Provider: msg.Provider, ProviderChatID: chatID})
	if err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	err = uc.eventRepo.InsertEvent(ctx, &domain.NewEvent{
		ChatID:          chat.ID,
		UserID:          user.ID,
		Type:            eventType,
		Text:            text,
		Provider:        msg.Provider,
		SourceMessageID: msg.SourceMessageID,
		RawPayload:      msg.RawPayload,
		CreatedAt:       msg.CreatedAt,
	})
	if errors.Is(err, repo.ErrDuplicateEvent) {
		uc.log.Debug("duplicate delivery ignored", "provider", msg.Provider, "source_message_id", msg.SourceMessageID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	uc.log.Info("event recorded", "provider", msg.Provider, "user", msg.UserName, "type", eventType)
	return nil
}

func (uc *CheckinUsecase) firstContact(key string) bool {
	uc.seenMu.Lock()
	defer uc.seenMu.Unlock()
	if _, ok := uc.seen[key]; ok {
		return false
	}
	uc.seen[key] = struct{}{}
	return true
}

func (uc *CheckinUsecase) reply(ctx context.Context, msg *IncomingMessage, reply repo.Reply) {
	messenger, ok := uc.messengers[msg.Provider]
	if !ok {
		uc.log.Warn("no messenger for provider", "provider", msg.Provider)
		return
	}
	reply.ConversationID = msg.ConversationID
	if err := messenger.Send(ctx, reply); err != nil {
		uc.log.Warn("reply failed", "provider", msg.Provider, "conversation", msg.ConversationID, "error", err)
	}
}
