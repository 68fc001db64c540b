package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
)

const maxBodyBytes = 1 << 20

// Options configures the HTTP server
type Options struct {
	Port               int
	AdminAPIKey        string
	ViberToken         string // Enables X-Viber-Content-Signature checks when set
	SlackSigningSecret string // Slack webhook answers 501 when empty
}

// Server serves the chat webhooks and the export API
type Server struct {
	opts      Options
	checkinUC *usecase.CheckinUsecase
	exportUC  *usecase.ExportUsecase
	profiles  repo.ProfileRepo // Slack user lookup, may be nil
	log       *slog.Logger

	// Slack callbacks still being processed after the ack
	inflight sync.WaitGroup

	server *http.Server
}

// NewServer creates a new API server
func NewServer(opts Options, checkinUC *usecase.CheckinUsecase, exportUC *usecase.ExportUsecase, profiles repo.ProfileRepo) *Server {
	return &Server{
		opts:      opts,
		checkinUC: checkinUC,
		exportUC:  exportUC,
		profiles:  profiles,
		log:       slog.With("component", "api"),
	}
}

// Handler returns the routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat providers
	mux.HandleFunc("POST /webhook/viber", s.handleViberWebhook)
	mux.HandleFunc("POST /webhook/slack", s.handleSlackWebhook)

	// Exports
	mux.HandleFunc("GET /export/csv", s.requireAPIKey(s.handleExportCSV))
	mux.HandleFunc("GET /export/xlsx", s.requireAPIKey(s.handleExportXLSX))
	mux.HandleFunc("GET /export/summary", s.requireAPIKey(s.handleExportSummary))
	mux.HandleFunc("GET /export/summary.csv", s.requireAPIKey(s.handleExportSummaryCSV))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("listening", "port", s.opts.Port)
	return s.server.ListenAndServe()
}

// Stop shuts the server down and waits for queued Slack callbacks
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("shutdown before slack callbacks finished")
	}
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}
