package scheduler

import (
	"context"
	"sync"
	"time"

	"alert-escalation-service/internal/escalation"
	"alert-escalation-service/internal/logging"
)

// Scheduler drives the escalation engine: sweep ticks at a fixed interval
// and a retention pass once a day. The engine assumes single-writer sweeps,
// so every sweep — periodic or manually triggered — goes through Sweep,
// which serializes them.
type Scheduler struct {
	engine        *escalation.Service
	logger        *logging.Logger
	sweepInterval time.Duration
	retentionDays int
	mu            sync.Mutex
}

func New(engine *escalation.Service, logger *logging.Logger, sweepInterval time.Duration, retentionDays int) *Scheduler {
	return &Scheduler{
		engine:        engine,
		logger:        logger,
		sweepInterval: sweepInterval,
		retentionDays: retentionDays,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()
	retention := time.NewTicker(24 * time.Hour)
	defer retention.Stop()

	s.logger.Infof("Scheduler started, sweep every %s", s.sweepInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Scheduler stopped")
			return
		case <-sweep.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Errorf("Escalation sweep failed: %v", err)
				continue
			}
			if report.Failed > 0 {
				s.logger.Warnf("Escalation sweep completed with %d failed alerts", report.Failed)
			}
		case <-retention.C:
			if _, err := s.engine.CleanupOldAlerts(ctx, s.retentionDays); err != nil {
				s.logger.Errorf("Retention sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one escalation sweep, serialized against the periodic tick.
func (s *Scheduler) Sweep(ctx context.Context) (escalation.SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.RunEscalationSweep(ctx)
}
