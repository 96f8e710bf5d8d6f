package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically closes sessions whose client went quiet without disconnecting.
type Sweeper struct {
	service *QuizService
	idle    time.Duration
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewSweeper schedules the sweep with a cron spec such as "@every 1m".
func NewSweeper(service *QuizService, idle time.Duration, spec string, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		service: service,
		idle:    idle,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("session sweeper started", zap.Duration("idle", s.idle))
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("session sweeper stopped")
}

func (s *Sweeper) sweep() {
	closed := s.service.SweepIdle(time.Now().Add(-s.idle))
	if closed > 0 {
		s.logger.Info("idle sessions swept", zap.Int("closed", closed))
	}
}
