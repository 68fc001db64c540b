package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
)

// DefaultViberAPIURL is the Viber REST API base
const DefaultViberAPIURL = "https://chatapi.viber.com/pa"

// ViberKeyboard is a Viber reply keyboard
type ViberKeyboard struct {
	Type          string        `json:"Type"`
	DefaultHeight bool          `json:"DefaultHeight,omitempty"`
	Buttons       []ViberButton `json:"Buttons"`
}

// ViberButton is one reply button
type ViberButton struct {
	ActionType string `json:"ActionType"`
	ActionBody string `json:"ActionBody"`
	Text       string `json:"Text"`
	TextSize   string `json:"TextSize,omitempty"`
	Columns    int    `json:"Columns,omitempty"`
	Rows       int    `json:"Rows,omitempty"`
}

// MenuKeyboard builds the action menu; each button replies with its own label
func MenuKeyboard() *ViberKeyboard {
	kb := &ViberKeyboard{Type: "keyboard", DefaultHeight: true}
	for _, label := range domain.ButtonLabels {
		kb.Buttons = append(kb.Buttons, ViberButton{
			ActionType: "reply",
			ActionBody: label,
			Text:       label,
			TextSize:   "regular",
			Columns:    6,
			Rows:       1,
		})
	}
	return kb
}

type viberSender struct {
	Name string `json:"name"`
}

type viberSendRequest struct {
	Receiver string         `json:"receiver"`
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Sender   viberSender    `json:"sender"`
	Keyboard *ViberKeyboard `json:"keyboard,omitempty"`
}

type viberWebhookRequest struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types"`
	SendName   bool     `json:"send_name"`
	SendPhoto  bool     `json:"send_photo"`
}

type viberResponse struct {
	Status        int    `json:"status"`
	StatusMessage string `json:"status_message"`
}

// ViberRepo talks to the Viber bot API
type ViberRepo struct {
	token      string
	senderName string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewViberRepo creates a Viber repository. An empty token disables replies.
func NewViberRepo(token, senderName, baseURL string) *ViberRepo {
	if baseURL == "" {
		baseURL = DefaultViberAPIURL
	}
	return &ViberRepo{
		token:      token,
		senderName: senderName,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.With("component", "viber"),
	}
}

var _ repo.MessengerRepo = (*ViberRepo)(nil)

// Provider returns viber
func (r *ViberRepo) Provider() domain.Provider {
	return domain.ProviderViber
}

// Send sends a text message, with the menu keyboard when requested
func (r *ViberRepo) Send(ctx context.Context, reply repo.Reply) error {
	if r.token == "" {
		return nil
	}

	req := viberSendRequest{
		Receiver: reply.ConversationID,
		Type:     "text",
		Text:     reply.Text,
		Sender:   viberSender{Name: r.senderName},
	}
	if reply.ShowMenu || reply.MenuPrompt {
		req.Keyboard = MenuKeyboard()
	}

	if err := r.call(ctx, "/send_message", req); err != nil {
		return fmt.Errorf("viber send_message failed: %w", err)
	}
	return nil
}

// SetWebhook registers url as the bot's webhook
func (r *ViberRepo) SetWebhook(ctx context.Context, url string) error {
	if r.token == "" {
		return fmt.Errorf("viber token not configured")
	}

	req := viberWebhookRequest{
		URL:        url,
		EventTypes: []string{"message", "subscribed", "unsubscribed", "conversation_started"},
		SendName:   true,
		SendPhoto:  true,
	}
	if err := r.call(ctx, "/set_webhook", req); err != nil {
		return fmt.Errorf("viber set_webhook failed: %w", err)
	}
	r.log.Info("webhook registered", "url", url)
	return nil
}

func (r *ViberRepo) call(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Viber-Auth-Token", r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s", resp.Status, respBody)
	}

	var result viberResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Status != 0 {
		return fmt.Errorf("status %d: %s", result.Status, result.StatusMessage)
	}
	return nil
}
