package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
	"github.com/slack-go/slack"
)

type slackEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	EventTime int64  `json:"event_time"` // Unix seconds
	Event     *struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		User    string `json:"user"`
		BotID   string `json:"bot_id"`
		Text    string `json:"text"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"event"`
}

func (s *Server) handleSlackWebhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.SlackSigningSecret == "" {
		s.writeError(w, http.StatusNotImplemented, "Slack not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	// Verifies the v0 signature and rejects timestamps older than five minutes
	verifier, err := slack.NewSecretsVerifier(r.Header, s.opts.SlackSigningSecret)
	if err == nil {
		_, err = verifier.Write(body)
	}
	if err == nil {
		err = verifier.Ensure()
	}
	if err != nil {
		s.log.Debug("slack signature rejected", "error", err)
		s.writeError(w, http.StatusUnauthorized, "Invalid Slack signature")
		return
	}

	var env slackEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Type == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if env.Type == "url_verification" && env.Challenge != "" {
		s.writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	// Ack before any processing so Slack does not retry
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	msg, ok := slackMessage(&env, body)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.processSlackMessage(ctx, msg)
	}()
}

// slackMessage extracts a user message from an event callback. Bot posts
// and edited or system messages are skipped so replies do not loop.
func slackMessage(env *slackEnvelope, body []byte) (*usecase.IncomingMessage, bool) {
	if env.Type != "event_callback" || env.Event == nil {
		return nil, false
	}
	ev := env.Event
	if ev.Type != "message" || ev.BotID != "" || ev.Subtype != "" {
		return nil, false
	}

	sourceID := env.EventID
	if sourceID == "" {
		sourceID = ev.TS
	}
	if ev.User == "" || ev.Channel == "" || sourceID == "" {
		return nil, false
	}

	createdAt := time.Now()
	if env.EventTime > 0 {
		createdAt = time.Unix(env.EventTime, 0)
	}

	return &usecase.IncomingMessage{
		Provider:        domain.ProviderSlack,
		ProviderUserID:  ev.User,
		UserName:        ev.User,
		ProviderChatID:  ev.Channel,
		ConversationID:  ev.Channel,
		Text:            ev.Text,
		SourceMessageID: sourceID,
		RawPayload:      body,
		CreatedAt:       createdAt,
	}, true
}

func (s *Server) processSlackMessage(ctx context.Context, msg *usecase.IncomingMessage) {
	if s.profiles != nil {
		profile, err := s.profiles.GetProfile(ctx, msg.ProviderUserID)
		if err != nil {
			s.log.Warn("slack profile lookup failed", "user", msg.ProviderUserID, "error", err)
		}
		if profile != nil {
			if profile.Name != "" {
				msg.UserName = profile.Name
			}
			msg.AvatarURL = profile.AvatarURL
		}
	}

	if err := s.checkinUC.HandleMessage(ctx, msg); err != nil {
		s.log.Error("slack message failed", "source_message_id", msg.SourceMessageID, "error", err)
	}
}
