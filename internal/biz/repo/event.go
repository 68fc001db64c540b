package repo

import (
	"context"
	"errors"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
)

// ErrDuplicateEvent is returned when an event with the same provider and
// source message id already exists
var ErrDuplicateEvent = errors.New("duplicate event")

// EventRepo is the attendance event repository interface
// Responsible for users, chats and events persistence (SQLite)
type EventRepo interface {
	// UpsertUser creates the user or refreshes its name and avatar
	UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpsertChat creates the chat if it does not exist yet
	UpsertChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)

	// InsertEvent stores an event, ErrDuplicateEvent if (provider, source message id) exists
	InsertEvent(ctx context.Context, event *domain.NewEvent) error

	// ListEvents lists events created in [from, to], oldest first
	ListEvents(ctx context.Context, from, to time.Time) ([]domain.AttendanceEvent, error)

	// Close closes the underlying database
	Close() error
}
