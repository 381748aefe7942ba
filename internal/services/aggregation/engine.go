package aggregation

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"RiskPulse/internal/domain/models"
)

// Engine validates scored events and folds them into the dashboard aggregates.
// All methods are safe for concurrent use.
type Engine struct {
	cfg   Config
	clock func() time.Time

	dedup     *DedupIndex
	bucketer  *TimeBucketer
	histogram *AmountHistogram
	tiering   *RiskTiering
	feed      *AlertFeed

	accepted atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for future/stale checks and snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// New validates cfg and builds an engine. A config error is fatal: no engine is returned.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	hist, err := NewAmountHistogram(cfg.AmountRanges)
	if err != nil {
		return nil, err
	}
	tiering := NewRiskTiering(cfg.LowMax, cfg.HighMin)
	e := &Engine{
		cfg:       cfg,
		clock:     time.Now,
		dedup:     NewDedupIndex(),
		bucketer:  NewTimeBucketer(cfg.WindowWidth),
		histogram: hist,
		tiering:   tiering,
		feed:      NewAlertFeed(cfg, tiering),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Ingest validates ev and, if accepted, records it in every component.
// It returns the alert raised for the event, or nil. Rejections are *models.IngressError.
func (e *Engine) Ingest(ev models.TransactionEvent) (*models.AlertRecord, error) {
	now := e.clock()
	windowStart, err := e.validate(ev, now)
	if err != nil {
		return nil, err
	}
	if !e.dedup.Reserve(ev.ID, windowStart) {
		return nil, reject(ev.ID, models.ErrDuplicateEvent, "")
	}

	verdict := models.VerdictFor(ev, e.cfg.AlertThreshold)
	e.bucketer.Record(ev, verdict)
	e.histogram.Record(ev, verdict)
	e.tiering.Record(ev.RiskScore)
	alert := e.feed.Consider(ev)
	e.accepted.Add(1)
	return alert, nil
}

// validate runs every check that does not mutate state and returns the event's window start.
func (e *Engine) validate(ev models.TransactionEvent, now time.Time) (time.Time, error) {
	if strings.TrimSpace(ev.ID) == "" {
		return time.Time{}, reject(ev.ID, models.ErrMissingID, "")
	}
	if ev.Amount.IsNegative() {
		return time.Time{}, reject(ev.ID, models.ErrInvalidAmount, fmt.Sprintf("amount %s is negative", ev.Amount))
	}
	if math.IsNaN(ev.RiskScore) || ev.RiskScore < 0 || ev.RiskScore > 1 {
		return time.Time{}, reject(ev.ID, models.ErrInvalidScore, fmt.Sprintf("score %v outside [0,1]", ev.RiskScore))
	}
	if ev.Timestamp.IsZero() {
		return time.Time{}, reject(ev.ID, models.ErrInvalidTimestamp, "timestamp missing")
	}
	if ev.Timestamp.After(now.Add(e.cfg.FutureSkewTolerance)) {
		return time.Time{}, reject(ev.ID, models.ErrFutureTimestamp,
			fmt.Sprintf("%s is %s ahead", ev.Timestamp.UTC().Format(time.RFC3339), ev.Timestamp.Sub(now).Round(time.Second)))
	}
	ws := e.bucketer.WindowStart(ev.Timestamp)
	if ws.Before(e.cutoff(now)) {
		return time.Time{}, reject(ev.ID, models.ErrStaleTimestamp, ev.Timestamp.UTC().Format(time.RFC3339))
	}
	return ws, nil
}

// cutoff is the earliest window start still retained at now.
func (e *Engine) cutoff(now time.Time) time.Time {
	return e.bucketer.WindowStart(now).Add(-e.cfg.RetentionHorizon)
}

func reject(id string, err error, reason string) error {
	return &models.IngressError{EventID: id, Reason: reason, Err: err}
}

// SweepStats reports what one retention sweep removed.
type SweepStats struct {
	Cutoff   time.Time
	Buckets  int
	EventIDs int
	Alerts   int
	Accounts int
}

// Sweep evicts state older than the retention horizon relative to now, and
// rapid-index timestamps older than the rapid window. Each step
// locks one component at a time; running it twice for the same now is a no-op.
func (e *Engine) Sweep(now time.Time) SweepStats {
	cutoff := e.cutoff(now)
	st := SweepStats{Cutoff: cutoff}
	st.Buckets = e.bucketer.Sweep(cutoff)
	st.EventIDs = e.dedup.Sweep(cutoff)
	rapidCutoff := now.Add(-e.cfg.RapidTransactionWindow)
	if rapidCutoff.Before(cutoff) {
		rapidCutoff = cutoff
	}
	st.Alerts, st.Accounts = e.feed.Sweep(cutoff, rapidCutoff)
	return st
}

// Accepted returns the number of accepted events.
func (e *Engine) Accepted() uint64 { return e.accepted.Load() }

// LiveBuckets returns the number of retained time windows.
func (e *Engine) LiveBuckets() int { return e.bucketer.Len() }

// FeedSize returns the current number of alerts in the feed.
func (e *Engine) FeedSize() int { return e.feed.Len() }
