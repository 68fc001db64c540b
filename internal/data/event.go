package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// eventRepo implements the attendance event repository
type eventRepo struct {
	db  *sql.DB
	log *slog.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (provider, provider_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_chat_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (provider, provider_chat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL REFERENCES chats(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		event_type TEXT NOT NULL,
		text TEXT,
		provider TEXT NOT NULL,
		source_message_id TEXT NOT NULL,
		raw_payload TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		UNIQUE (provider, source_message_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id)`,
}

// NewEventRepo opens (and migrates) the SQLite database at dbPath
func NewEventRepo(dbPath string) (repo.EventRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time is all SQLite allows anyway
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log := slog.With("component", "store")
	log.Info("database initialized", "path", dbPath)
	return &eventRepo{db: db, log: log}, nil
}

// UpsertUser creates the user or refreshes its profile
func (r *eventRepo) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now().UnixMilli()
	out := *user

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, provider, provider_user_id, name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_user_id) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
		RETURNING id
	`, uuid.NewString(), string(user.Provider), user.ProviderUserID, user.Name, user.AvatarURL, now, now).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &out, nil
}

// UpsertChat creates the chat if it is new and returns the stored row
func (r *eventRepo) UpsertChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	out := *chat

	// The no-op update makes RETURNING yield the existing id on conflict
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chats (id, provider, provider_chat_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (provider, provider_chat_id) DO UPDATE SET
			provider_chat_id = excluded.provider_chat_id
		RETURNING id
	`, uuid.NewString(), string(chat.Provider), chat.ProviderChatID, time.Now().UnixMilli()).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chat: %w", err)
	}
	return &out, nil
}

// InsertEvent stores an event once per (provider, source message id)
func (r *eventRepo) InsertEvent(ctx context.Context, event *domain.NewEvent) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	var text sql.NullString
	if event.Type == domain.EventStatus {
		text = sql.NullString{String: event.Text, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, chat_id, user_id, event_type, text, provider, source_message_id, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, source_message_id) DO NOTHING
	`,
		id,
		event.ChatID,
		event.UserID,
		string(event.Type),
		text,
		string(event.Provider),
		event.SourceMessageID,
		string(event.RawPayload),
		event.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	if n == 0 {
		return repo.ErrDuplicateEvent
	}
	return nil
}

// ListEvents lists events created in [from, to] with their user names
func (r *eventRepo) ListEvents(ctx context.Context, from, to time.Time) ([]domain.AttendanceEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.created_at, e.event_type, u.name, COALESCE(e.text, '')
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.created_at >= ? AND e.created_at <= ?
		ORDER BY e.created_at ASC, e.id ASC
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.AttendanceEvent
	for rows.Next() {
		var e domain.AttendanceEvent
		var createdAt int64
		var eventType string
		if err := rows.Scan(&createdAt, &eventType, &e.UserName, &e.Text); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		e.Type = domain.EventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// Close closes the database connection
func (r *eventRepo) Close() error {
	return r.db.Close()
}
