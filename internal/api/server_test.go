package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
	"github.com/pinetree-ops/shiftlog/internal/conf"
	"github.com/pinetree-ops/shiftlog/internal/data"
	"github.com/pinetree-ops/shiftlog/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	testAPIKey        = "admin-key"
	testSigningSecret = "slack-secret"
)

type recordingMessenger struct {
	provider domain.Provider
	mu       sync.Mutex
	sent     []repo.Reply
}

func (m *recordingMessenger) Provider() domain.Provider { return m.provider }

func (m *recordingMessenger) Send(ctx context.Context, reply repo.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, reply)
	return nil
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type staticProfiles struct{}

func (staticProfiles) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return &domain.Profile{Name: "Slack " + userID}, nil
}

type testEnv struct {
	server *Server
	events repo.EventRepo
	viber  *recordingMessenger
	slack  *recordingMessenger
	http   *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	events, err := data.NewEventRepo(filepath.Join(t.TempDir(), "shiftlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	viber := &recordingMessenger{provider: domain.ProviderViber}
	slackMessenger := &recordingMessenger{provider: domain.ProviderSlack}

	checkin := usecase.NewCheckinUsecase(events, data.NewPendingStatusRepo(),
		[]repo.MessengerRepo{viber, slackMessenger}, conf.DefaultRepliesConfig(), 2*time.Minute)
	exporter := usecase.NewExportUsecase(events, time.UTC)

	if opts.AdminAPIKey == "" {
		opts.AdminAPIKey = testAPIKey
	}
	server := NewServer(opts, checkin, exporter, staticProfiles{})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{server: server, events: events, viber: viber, slack: slackMessenger, http: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func viberPayload(token int64, text string, at time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "message",
		"timestamp": %d,
		"message_token": %d,
		"sender": {"id": "viber-alice", "name": "Alice"},
		"message": {"type": "text", "text": %q}
	}`, at.UnixMilli(), token, text))
}

var day = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["ok"])
}

func TestViberWebhook_RecordsAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})
	payload := viberPayload(5001, "🟢 Start shift", day)

	r1 := env.do(t, http.MethodPost, "/webhook/viber", payload, nil)
	r2 := env.do(t, http.MethodPost, "/webhook/viber", payload, nil)
	assert.Equal(t, http.StatusOK, r1.StatusCode)
	assert.Equal(t, http.StatusOK, r2.StatusCode)

	events, err := env.events.ListEvents(context.Background(), day.Add(-time.Hour), day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventShiftStart, events[0].Type)
	assert.Equal(t, "Alice", events[0].UserName)
	assert.True(t, events[0].CreatedAt.Equal(day))
}

func TestViberWebhook_NonMessageAcked(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp := env.do(t, http.MethodPost, "/webhook/viber", []byte(`{"event":"subscribed","user":{"id":"x"}}`), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, env.viber.count())
}

func TestViberWebhook_BadRequests(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodPost, "/webhook/viber", []byte(`not json`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/webhook/viber", []byte(`{"event":"message","message":{"text":"/start"}}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/webhook/viber", []byte(`{"event":"message","sender":{"id":"u"},"message":{"text":"/start"}}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing message token")
}

func TestViberWebhook_StringToken(t *testing.T) {
	env := newTestEnv(t, Options{})
	body := []byte(`{"event":"message","message_token":"abc","sender":{"id":"u"},"message":{"text":"/start"}}`)
	resp := env.do(t, http.MethodPost, "/webhook/viber", body, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.viber.count())
}

func TestViberWebhook_Signature(t *testing.T) {
	env := newTestEnv(t, Options{ViberToken: "viber-token"})
	payload := viberPayload(7, "/start", day)

	resp := env.do(t, http.MethodPost, "/webhook/viber", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	mac := hmac.New(sha256.New, []byte("viber-token"))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	resp = env.do(t, http.MethodPost, "/webhook/viber", payload, map[string]string{viberSignatureHeader: sig})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func slackHeaders(secret string, body []byte, at time.Time) map[string]string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + string(body)))
	return map[string]string{
		"X-Slack-Request-Timestamp": ts,
		"X-Slack-Signature":         "v0=" + hex.EncodeToString(mac.Sum(nil)),
		"Content-Type":              "application/json",
	}
}

func TestSlackWebhook_NotConfigured(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp := env.do(t, http.MethodPost, "/webhook/slack", []byte(`{}`), nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestSlackWebhook_Signature(t *testing.T) {
	env := newTestEnv(t, Options{SlackSigningSecret: testSigningSecret})
	body := []byte(`{"type":"url_verification","challenge":"abc123"}`)

	resp := env.do(t, http.MethodPost, "/webhook/slack", body, slackHeaders("wrong", body, time.Now()))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/webhook/slack", body, slackHeaders(testSigningSecret, body, time.Now().Add(-10*time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "stale timestamp")

	resp = env.do(t, http.MethodPost, "/webhook/slack", body, slackHeaders(testSigningSecret, body, time.Now()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "abc123", out["challenge"])
}

func TestSlackWebhook_ProcessesMessage(t *testing.T) {
	env := newTestEnv(t, Options{SlackSigningSecret: testSigningSecret})
	body := []byte(fmt.Sprintf(`{
		"type": "event_callback",
		"event_id": "Ev1",
		"event_time": %d,
		"event": {"type": "message", "user": "U1", "text": "break start", "channel": "C1", "ts": "1.1"}
	}`, day.Unix()))

	resp := env.do(t, http.MethodPost, "/webhook/slack", body, slackHeaders(testSigningSecret, body, time.Now()))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Stop(ctx))

	events, err := env.events.ListEvents(context.Background(), day.Add(-time.Hour), day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBreakStart, events[0].Type)
	assert.Equal(t, "Slack U1", events[0].UserName)
	assert.Equal(t, 1, env.slack.count())
}

func TestSlackWebhook_IgnoresBots(t *testing.T) {
	env := newTestEnv(t, Options{SlackSigningSecret: testSigningSecret})
	body := []byte(`{"type":"event_callback","event_id":"Ev2","event":{"type":"message","bot_id":"B1","user":"U1","text":"/start","channel":"C1"}}`)

	resp := env.do(t, http.MethodPost, "/webhook/slack", body, slackHeaders(testSigningSecret, body, time.Now()))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Stop(ctx))
	assert.Equal(t, 0, env.slack.count())
}

func seedDay(t *testing.T, env *testEnv) {
	t.Helper()
	steps := []struct {
		text   string
		offset time.Duration
	}{
		{"/start", 0},
		{"/break_start", 3 * time.Hour},
		{"/break_end", 3*time.Hour + 30*time.Minute},
		{"/end", 9 * time.Hour},
	}
	for i, step := range steps {
		resp := env.do(t, http.MethodPost, "/webhook/viber", viberPayload(int64(100+i), step.text, day.Add(step.offset)), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestExport_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, path := range []string{"/export/csv?date=2026-03-02", "/export/xlsx?date=2026-03-02", "/export/summary?date=2026-03-02", "/export/summary.csv?date=2026-03-02"} {
		resp := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp = env.do(t, http.MethodGet, path, nil, map[string]string{apiKeyHeader: "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestExport_InvalidRange(t *testing.T) {
	env := newTestEnv(t, Options{})
	headers := map[string]string{apiKeyHeader: testAPIKey}

	for _, path := range []string{"/export/csv", "/export/csv?from=2026-03-02", "/export/csv?date=02-03-2026", "/export/csv?from=2026-03-05&to=2026-03-01"} {
		resp := env.do(t, http.MethodGet, path, nil, headers)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestExport_CSV(t *testing.T) {
	env := newTestEnv(t, Options{})
	seedDay(t, env)

	resp := env.do(t, http.MethodGet, "/export/csv?date=2026-03-02", nil, map[string]string{apiKeyHeader: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "events_2026-03-02.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, export.EventColumns, records[0])
	assert.Equal(t, []string{"2026-03-02", "Alice", "SHIFT_START", "08:00", ""}, records[1])
}

func TestExport_Summary(t *testing.T) {
	env := newTestEnv(t, Options{})
	seedDay(t, env)

	resp := env.do(t, http.MethodGet, "/export/summary?from=2026-03-01&to=2026-03-02", nil, map[string]string{apiKeyHeader: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "UTC", body.Timezone)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, domain.DailySummaryRow{
		Date: "2026-03-02", UserName: "Alice", ShiftStart: "08:00", ShiftEnd: "17:00",
		BreakMinutes: 30, WorkedMinutes: 510,
	}, body.Rows[0])
}

func TestExport_SummaryEmptyRange(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp := env.do(t, http.MethodGet, "/export/summary?date=2026-03-02", nil, map[string]string{apiKeyHeader: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []interface{}{}, body["rows"])
}

func TestExport_XLSX(t *testing.T) {
	env := newTestEnv(t, Options{})
	seedDay(t, env)

	resp := env.do(t, http.MethodGet, "/export/xlsx?date=2026-03-02", nil, map[string]string{apiKeyHeader: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentTypeXLSX, resp.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "510", rows[1][5])
}

func TestExport_SummaryCSV(t *testing.T) {
	env := newTestEnv(t, Options{})
	seedDay(t, env)

	resp := env.do(t, http.MethodGet, "/export/summary.csv?date=2026-03-02", nil, map[string]string{apiKeyHeader: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2026-03-02", "Alice", "08:00", "17:00", "30", "510", "No"}, records[1])
}

func TestExport_EncodeFailureHidesCause(t *testing.T) {
	s := NewServer(Options{}, nil, nil, nil)
	rec := httptest.NewRecorder()

	s.writeExport(rec, "text/csv; charset=utf-8", "events_2026-03-02.csv", func(buf *bytes.Buffer) error {
		buf.WriteString("date,name\n")
		return errors.New("write /tmp/sheet1.xml: no space left on device")
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.NotContains(t, rec.Body.String(), "no space left")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Internal error", body["error"])
}
