package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
	"github.com/pinetree-ops/shiftlog/internal/export"
)

const apiKeyHeader = "x-api-key"

func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" || s.opts.AdminAPIKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminAPIKey)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// loadReport resolves the query range and builds the report, writing the
// error response itself when that fails
func (s *Server) loadReport(ctx context.Context, w http.ResponseWriter, r *http.Request) (*usecase.Report, bool) {
	q := r.URL.Query()
	from, to, err := usecase.ResolveRange(q.Get("date"), q.Get("from"), q.Get("to"))
	if err == nil {
		var report *usecase.Report
		report, err = s.exportUC.BuildReport(ctx, from, to)
		if err == nil {
			return report, true
		}
	}

	if errors.Is(err, usecase.ErrInvalidRange) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	s.log.Error("export failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "Internal error")
	return nil, false
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(r.Context(), w, r)
	if !ok {
		return
	}

	s.writeExport(w, "text/csv; charset=utf-8", attachmentName("events", report, "csv"), func(buf *bytes.Buffer) error {
		return export.WriteEventsCSV(buf, report.Events, report.Location)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(r.Context(), w, r)
	if !ok {
		return
	}

	s.writeExport(w, export.ContentTypeXLSX, attachmentName("events", report, "xlsx"), func(buf *bytes.Buffer) error {
		return export.WriteXLSX(buf, report.Events, report.Summary, report.Location)
	})
}

func (s *Server) handleExportSummaryCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(r.Context(), w, r)
	if !ok {
		return
	}

	s.writeExport(w, "text/csv; charset=utf-8", attachmentName("summary", report, "csv"), func(buf *bytes.Buffer) error {
		return export.WriteSummaryCSV(buf, report.Summary)
	})
}

// SummaryResponse is the JSON body of GET /export/summary
type SummaryResponse struct {
	OK       bool                     `json:"ok"`
	From     string                   `json:"from"`
	To       string                   `json:"to"`
	Timezone string                   `json:"timezone"`
	Rows     []domain.DailySummaryRow `json:"rows"`
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(r.Context(), w, r)
	if !ok {
		return
	}

	rows := report.Summary
	if rows == nil {
		rows = []domain.DailySummaryRow{}
	}
	s.writeJSON(w, http.StatusOK, SummaryResponse{
		OK:       true,
		From:     report.From,
		To:       report.To,
		Timezone: report.Location.String(),
		Rows:     rows,
	})
}

// writeExport renders the file in memory. Encoder errors are logged and
// answered with a generic 500.
func (s *Server) writeExport(w http.ResponseWriter, contentType, filename string, encode func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		s.log.Error("export encode failed", "file", filename, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeAttachment(w, contentType, filename, buf.Bytes())
}

func (s *Server) writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func attachmentName(prefix string, report *usecase.Report, ext string) string {
	if report.From == report.To {
		return fmt.Sprintf("%s_%s.%s", prefix, report.From, ext)
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, report.From, report.To, ext)
}
