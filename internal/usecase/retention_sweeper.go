package usecase

import (
	"context"
	"time"

	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/services/aggregation"
	applogger "RiskPulse/pkg/logger"
)

// RetentionSweeper periodically evicts engine state past the retention horizon
// and refreshes the engine size gauges.
type RetentionSweeper struct {
	engines  *EngineHolder
	interval time.Duration
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

func NewRetentionSweeper(engines *EngineHolder, interval time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *RetentionSweeper {
	if l == nil {
		l = applogger.Nop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &RetentionSweeper{engines: engines, interval: interval, metrics: metrics, log: l, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep. ok is false when no engine is installed.
func (s *RetentionSweeper) SweepOnce() (st aggregation.SweepStats, ok bool) {
	eng, err := s.engines.Get()
	if err != nil {
		return st, false
	}
	start := time.Now()
	st = eng.Sweep(s.now())
	s.metrics.RecordLatency("retention_sweep", time.Since(start).Seconds())
	s.metrics.SetLiveBuckets(eng.LiveBuckets())
	s.metrics.SetFeedSize(eng.FeedSize())

	if st.Buckets+st.EventIDs+st.Alerts+st.Accounts > 0 {
		s.log.Debug("retention sweep",
			applogger.Time("cutoff", st.Cutoff),
			applogger.Int("buckets", st.Buckets),
			applogger.Int("event_ids", st.EventIDs),
			applogger.Int("alerts", st.Alerts),
			applogger.Int("accounts", st.Accounts),
		)
	}
	return st, true
}
