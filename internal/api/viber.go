package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
)

const viberSignatureHeader = "X-Viber-Content-Signature"

type viberCallback struct {
	Event        string          `json:"event"`
	Timestamp    int64           `json:"timestamp"` // Unix ms
	MessageToken json.RawMessage `json:"message_token"`
	ChatID       string          `json:"chat_id"`
	Sender       *struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"sender"`
	Message *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

func (s *Server) handleViberWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if s.opts.ViberToken != "" && !validViberSignature(s.opts.ViberToken, r.Header.Get(viberSignatureHeader), body) {
		s.writeError(w, http.StatusUnauthorized, "Invalid Viber signature")
		return
	}

	var cb viberCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if cb.Event != "message" {
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	token := messageToken(cb.MessageToken)
	if cb.Sender == nil || cb.Sender.ID == "" || token == "" {
		s.writeError(w, http.StatusBadRequest, "Missing sender or message id")
		return
	}

	msg := &usecase.IncomingMessage{
		Provider:        domain.ProviderViber,
		ProviderUserID:  cb.Sender.ID,
		UserName:        cb.Sender.Name,
		AvatarURL:       cb.Sender.Avatar,
		ProviderChatID:  cb.ChatID,
		ConversationID:  cb.ChatID,
		SourceMessageID: token,
		RawPayload:      body,
		CreatedAt:       time.Now(),
	}
	if msg.UserName == "" {
		msg.UserName = "Unknown"
	}
	if msg.ConversationID == "" {
		msg.ConversationID = cb.Sender.ID
	}
	if cb.Message != nil {
		msg.Text = cb.Message.Text
	}
	if cb.Timestamp > 0 {
		msg.CreatedAt = time.UnixMilli(cb.Timestamp)
	}

	if err := s.checkinUC.HandleMessage(r.Context(), msg); err != nil {
		s.log.Error("viber message failed", "token", token, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// messageToken accepts the token as a JSON number or string
func messageToken(raw json.RawMessage) string {
	token := strings.TrimSpace(string(raw))
	if token == "" || token == "null" {
		return ""
	}
	if strings.HasPrefix(token, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return ""
		}
		return str
	}
	return token
}

func validViberSignature(token, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
