package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
)

// ErrInvalidRange is returned for malformed or inverted date ranges
var ErrInvalidRange = errors.New("invalid date range")

// Report is everything an export needs for one date range
type Report struct {
	From     string
	To       string
	Location *time.Location
	Events   []domain.AttendanceEvent
	Summary  []domain.DailySummaryRow
}

// ExportUsecase loads events for a local date range and summarizes them
type ExportUsecase struct {
	eventRepo repo.EventRepo
	loc       *time.Location
}

// NewExportUsecase creates a new export usecase
func NewExportUsecase(eventRepo repo.EventRepo, loc *time.Location) *ExportUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportUsecase{eventRepo: eventRepo, loc: loc}
}

// Location returns the timezone reports are bucketed in
func (uc *ExportUsecase) Location() *time.Location {
	return uc.loc
}

// ResolveRange picks the inclusive date range from either a single date or
// a from/to pair. A single date wins when both are given.
func ResolveRange(date, from, to string) (string, string, error) {
	if date != "" {
		return date, date, nil
	}
	if from == "" || to == "" {
		return "", "", fmt.Errorf("%w: provide either date=YYYY-MM-DD or from=YYYY-MM-DD&to=YYYY-MM-DD", ErrInvalidRange)
	}
	return from, to, nil
}

// BuildReport loads every event in [from, to] (local dates, inclusive)
func (uc *ExportUsecase) BuildReport(ctx context.Context, from, to string) (*Report, error) {
	start, end, err := domain.DayRange(from, to, uc.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	events, err := uc.eventRepo.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return &Report{
		From:     from,
		To:       to,
		Location: uc.loc,
		Events:   events,
		Summary:  domain.Summarize(events, uc.loc),
	}, nil
}
