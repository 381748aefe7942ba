package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/services/aggregation"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/util"

	"github.com/shopspring/decimal"
)

const viewCacheKey = "dashboard:view"

// DashboardService turns engine snapshots into the dashboard read model.
type DashboardService struct {
	engines  *EngineHolder
	cache    domrepo.ViewCache
	ttl      time.Duration
	currency string
	log      *applogger.Logger
}

type DashboardOption func(*DashboardService)

// WithViewCache caches the rendered full view for ttl. Several replicas can
// share one Redis-backed cache.
func WithViewCache(c domrepo.ViewCache, ttl time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.cache = c
		s.ttl = ttl
	}
}

func WithCurrency(symbol string) DashboardOption {
	return func(s *DashboardService) { s.currency = symbol }
}

func NewDashboardService(engines *EngineHolder, l *applogger.Logger, opts ...DashboardOption) *DashboardService {
	if l == nil {
		l = applogger.Nop()
	}
	s := &DashboardService{engines: engines, currency: "$", log: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View builds the full view from a fresh snapshot.
func (s *DashboardService) View(_ context.Context) (*models.DashboardView, error) {
	eng, err := s.engines.Get()
	if err != nil {
		return nil, err
	}
	v := buildView(eng.Snapshot(), eng.Config(), s.currency)
	return &v, nil
}

// ViewJSON returns the encoded full view, served from the cache while fresh.
// Cache failures degrade to rendering.
func (s *DashboardService) ViewJSON(ctx context.Context) (json.RawMessage, error) {
	if s.cache != nil && s.ttl > 0 {
		b, ok, err := s.cache.GetBytes(ctx, viewCacheKey)
		switch {
		case err != nil:
			s.log.Warn("dashboard cache_get_error", applogger.Error(err))
		case ok:
			return b, nil
		}
	}

	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard view: %w", err)
	}
	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetBytes(ctx, viewCacheKey, b, s.ttl); err != nil {
			s.log.Warn("dashboard cache_set_error", applogger.Error(err))
		}
	}
	return b, nil
}

// TimeSeries returns the gap-filled series restricted to windows starting in
// [from, to]. Zero bounds are open.
func (s *DashboardService) TimeSeries(ctx context.Context, from, to time.Time) ([]models.TimeSeriesPoint, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.TimeSeriesPoint, 0, len(v.TimeSeries))
	for _, p := range v.TimeSeries {
		if !from.IsZero() && p.WindowStart.Before(from) {
			continue
		}
		if !to.IsZero() && p.WindowStart.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *DashboardService) Histogram(ctx context.Context) ([]models.HistogramPoint, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return v.AmountHistogram, nil
}

func (s *DashboardService) RiskDistribution(ctx context.Context) (models.RiskDistribution, error) {
	v, err := s.View(ctx)
	if err != nil {
		return models.RiskDistribution{}, err
	}
	return v.RiskDistribution, nil
}

// Alerts returns at most limit alerts, newest first.
func (s *DashboardService) Alerts(ctx context.Context, limit int) ([]models.AlertView, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(v.Alerts) > limit {
		return v.Alerts[:limit], nil
	}
	return v.Alerts, nil
}

func buildView(snap models.AggregateSnapshot, cfg aggregation.Config, currency string) models.DashboardView {
	series := buildTimeSeries(snap.Buckets, cfg.WindowWidth, cfg.Location)

	var stats models.DashboardStats
	stats.TotalAmount = decimal.Zero
	for _, b := range snap.Buckets {
		stats.TotalTransactions += b.FraudCount + b.SuspectedCount + b.LegitimateCount
		stats.FraudDetected += b.FraudCount + b.SuspectedCount
		stats.TotalAmount = stats.TotalAmount.Add(b.TotalAmount)
	}
	if stats.TotalTransactions > 0 {
		stats.FraudRate = float64(stats.FraudDetected) / float64(stats.TotalTransactions) * 100
	}
	stats.ActiveAlerts = len(snap.Alerts)
	stats.AcceptedTotal = snap.Accepted

	hist := make([]models.HistogramPoint, len(snap.Histogram))
	for i, b := range snap.Histogram {
		hist[i] = models.HistogramPoint{
			RangeLabel: b.Label,
			TotalCount: b.TotalCount,
			FraudCount: b.FraudCount + b.SuspectedCount,
		}
	}

	alerts := make([]models.AlertView, len(snap.Alerts))
	for i, a := range snap.Alerts {
		alerts[i] = models.AlertView{
			ID:         a.ID,
			Category:   a.Category,
			Title:      a.Category.Title(),
			Amount:     a.Amount,
			OccurredAt: a.OccurredAt,
			Age:        util.RelativeAge(snap.AsOf.Sub(a.OccurredAt)),
			RiskTier:   a.RiskTier,
		}
	}

	return models.DashboardView{
		GeneratedAt:      snap.AsOf,
		Currency:         currency,
		Stats:            stats,
		TimeSeries:       series,
		AmountHistogram:  hist,
		RiskDistribution: snap.Tiers.Distribution(),
		Alerts:           alerts,
	}
}

// buildTimeSeries emits one point per window from the first to the last
// retained bucket, zero-filling windows that saw no events.
func buildTimeSeries(buckets []models.TimeBucket, width time.Duration, loc *time.Location) []models.TimeSeriesPoint {
	if len(buckets) == 0 {
		return []models.TimeSeriesPoint{}
	}
	first := buckets[0].WindowStart
	last := buckets[len(buckets)-1].WindowStart
	n := int(last.Sub(first)/width) + 1

	out := make([]models.TimeSeriesPoint, 0, n)
	i := 0
	for ws := first; !ws.After(last); ws = ws.Add(width) {
		p := models.TimeSeriesPoint{
			WindowLabel: util.WindowLabel(ws, width, loc),
			WindowStart: ws,
			TotalAmount: decimal.Zero,
		}
		if i < len(buckets) && buckets[i].WindowStart.Equal(ws) {
			b := buckets[i]
			p.FraudulentCount = b.FraudCount + b.SuspectedCount
			p.SuspectedCount = b.SuspectedCount
			p.LegitimateCount = b.LegitimateCount
			p.TotalAmount = b.TotalAmount
			i++
		}
		out = append(out, p)
	}
	return out
}
