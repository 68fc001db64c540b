package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
)

// DefaultSweepInterval is how often expired status prompts are dropped
const DefaultSweepInterval = time.Minute

// PendingSweeper periodically drops expired pending-status markers
type PendingSweeper struct {
	pendingRepo repo.PendingStatusRepo
	interval    time.Duration
	log         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPendingSweeper creates a new sweeper
func NewPendingSweeper(pendingRepo repo.PendingStatusRepo, interval time.Duration) *PendingSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &PendingSweeper{
		pendingRepo: pendingRepo,
		interval:    interval,
		log:         slog.With("component", "sweeper"),
	}
}

// Start starts the sweep loop
func (s *PendingSweeper) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.log.Debug("started", "interval", s.interval)
}

// Stop stops the sweep loop and waits for it to exit
func (s *PendingSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Debug("stopped")
}

func (s *PendingSweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *PendingSweeper) sweep() {
	if removed := s.pendingRepo.Sweep(); removed > 0 {
		s.log.Debug("dropped expired status prompts", "count", removed)
	}
}
