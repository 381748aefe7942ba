package aggregation

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg, WithClock(fixedClock(testNow)))
	require.NoError(t, err)
	return e
}

func event(id string, ts time.Time, amount string, score float64) models.TransactionEvent {
	return models.TransactionEvent{
		ID:        id,
		Timestamp: ts,
		Amount:    decimal.RequireFromString(amount),
		RiskScore: score,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestIngest_HighAmountSuspectedFraud(t *testing.T) {
	e := newTestEngine(t)
	ts := time.Date(2025, 3, 1, 0, 10, 0, 0, time.UTC)

	alert, err := e.Ingest(event("tx-1", ts, "15000", 0.95))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.CategoryHighAmount, alert.Category)
	assert.Equal(t, models.RiskHigh, alert.RiskTier)
	assert.Equal(t, "tx-1", alert.EventID)
	assert.NotEmpty(t, alert.ID)

	snap := e.Snapshot()
	require.Len(t, snap.Buckets, 1)
	b := snap.Buckets[0]
	assert.True(t, b.WindowStart.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, uint64(0), b.FraudCount)
	assert.Equal(t, uint64(1), b.SuspectedCount)
	assert.Equal(t, uint64(0), b.LegitimateCount)
	assert.Equal(t, "15000", b.TotalAmount.String())

	top := snap.Histogram[len(snap.Histogram)-1]
	assert.Equal(t, "$5K+", top.Label)
	assert.Equal(t, uint64(1), top.TotalCount)
	assert.Equal(t, uint64(1), top.SuspectedCount)

	assert.Equal(t, models.RiskTierTally{High: 1}, snap.Tiers)
	assert.Equal(t, models.RiskDistribution{High: 100}, snap.Tiers.Distribution())
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, uint64(1), snap.Accepted)
}

func TestIngest_HighAmountConfirmedFraud(t *testing.T) {
	e := newTestEngine(t)
	ev := event("tx-1", time.Date(2025, 3, 1, 0, 10, 0, 0, time.UTC), "15000", 0.95)
	ev.ConfirmedFraud = boolPtr(true)

	alert, err := e.Ingest(ev)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.CategoryHighAmount, alert.Category)

	snap := e.Snapshot()
	require.Len(t, snap.Buckets, 1)
	assert.True(t, snap.Buckets[0].WindowStart.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, uint64(1), snap.Buckets[0].FraudCount)
	assert.Zero(t, snap.Buckets[0].SuspectedCount)

	top := snap.Histogram[len(snap.Histogram)-1]
	assert.Equal(t, "$5K+", top.Label)
	assert.Equal(t, uint64(1), top.TotalCount)
	assert.Equal(t, uint64(1), top.FraudCount)
	assert.Equal(t, models.RiskTierTally{High: 1}, snap.Tiers)
}

func TestIngest_GroundTruthWins(t *testing.T) {
	e := newTestEngine(t)
	ts := testNow.Add(-time.Minute)

	ev := event("tx-legit", ts, "20", 0.99)
	ev.ConfirmedFraud = boolPtr(false)
	_, err := e.Ingest(ev)
	require.NoError(t, err)

	ev = event("tx-fraud", ts, "20", 0.05)
	ev.ConfirmedFraud = boolPtr(true)
	_, err = e.Ingest(ev)
	require.NoError(t, err)

	b := e.Snapshot().Buckets[0]
	assert.Equal(t, uint64(1), b.FraudCount)
	assert.Equal(t, uint64(0), b.SuspectedCount)
	assert.Equal(t, uint64(1), b.LegitimateCount)
}

func TestIngest_Rejections(t *testing.T) {
	ok := testNow.Add(-time.Minute)
	tests := []struct {
		name string
		ev   models.TransactionEvent
		want error
		code string
	}{
		{"missing id", event("  ", ok, "10", 0.1), models.ErrMissingID, "ERR_MISSING_ID"},
		{"negative amount", event("a", ok, "-0.01", 0.1), models.ErrInvalidAmount, "ERR_INVALID_AMOUNT"},
		{"score above one", event("b", ok, "10", 1.01), models.ErrInvalidScore, "ERR_INVALID_SCORE"},
		{"score below zero", event("c", ok, "10", -0.1), models.ErrInvalidScore, "ERR_INVALID_SCORE"},
		{"score NaN", event("d", ok, "10", math.NaN()), models.ErrInvalidScore, "ERR_INVALID_SCORE"},
		{"zero timestamp", event("e", time.Time{}, "10", 0.1), models.ErrInvalidTimestamp, "ERR_INVALID_TIMESTAMP"},
		{"future", event("f", testNow.Add(10*time.Minute), "10", 0.1), models.ErrFutureTimestamp, "ERR_FUTURE_TIMESTAMP"},
		{"stale", event("g", testNow.Add(-48*time.Hour), "10", 0.1), models.ErrStaleTimestamp, "ERR_STALE_TIMESTAMP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			alert, err := e.Ingest(tt.ev)
			require.Error(t, err)
			assert.Nil(t, alert)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var ie *models.IngressError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.code, ie.Code())

			snap := e.Snapshot()
			assert.Empty(t, snap.Buckets)
			assert.Zero(t, snap.Accepted)
			assert.Zero(t, snap.Tiers.Total())
		})
	}
}

func TestIngest_FutureWithinTolerance(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(event("skew", testNow.Add(90*time.Second), "10", 0.1))
	require.NoError(t, err)
}

func TestIngest_DuplicateIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ev := event("dup", testNow.Add(-time.Minute), "250", 0.9)

	_, err := e.Ingest(ev)
	require.NoError(t, err)
	before := e.Snapshot()

	for i := 0; i < 3; i++ {
		alert, err := e.Ingest(ev)
		assert.ErrorIs(t, err, models.ErrDuplicateEvent)
		assert.Nil(t, alert)
	}
	after := e.Snapshot()
	assert.Equal(t, before.Accepted, after.Accepted)
	assert.Equal(t, before.Tiers, after.Tiers)
	assert.Equal(t, len(before.Alerts), len(after.Alerts))
	assert.Equal(t, before.Buckets[0].SuspectedCount, after.Buckets[0].SuspectedCount)
}

func TestIngest_HistogramTotalMatchesAccepted(t *testing.T) {
	e := newTestEngine(t)
	amounts := []string{"0", "99.99", "100", "499", "500", "999.99", "1000", "4999", "5000", "123456.78"}
	for i, a := range amounts {
		_, err := e.Ingest(event(fmt.Sprintf("h-%d", i), testNow.Add(-time.Duration(i)*time.Minute), a, 0.2))
		require.NoError(t, err)
	}
	_, _ = e.Ingest(event("bad", testNow, "-1", 0.2))

	snap := e.Snapshot()
	var total uint64
	for _, b := range snap.Histogram {
		total += b.TotalCount
		assert.Equal(t, uint64(2), b.TotalCount, b.Label)
	}
	assert.Equal(t, snap.Accepted, total)
	assert.Equal(t, uint64(len(amounts)), snap.Accepted)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LowMax, cfg.HighMin = 0.8, 0.2

	e, err := New(cfg)
	assert.Nil(t, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	var ce *models.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "risk_cutpoints", ce.Field)
}

func TestSweep_RemovesExpiredState(t *testing.T) {
	now := testNow
	e, err := New(DefaultConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	old := event("old", now.Add(-30*time.Minute), "20000", 0.99)
	old.AccountID = "acc-1"
	_, err = e.Ingest(old)
	require.NoError(t, err)
	require.Equal(t, 1, e.LiveBuckets())
	require.Equal(t, 1, e.FeedSize())

	// 28h later the 00:00 window is past the 24h horizon.
	now = now.Add(28 * time.Hour)
	fresh := event("fresh", now.Add(-time.Minute), "10", 0.1)
	_, err = e.Ingest(fresh)
	require.NoError(t, err)

	st := e.Sweep(now)
	assert.Equal(t, 1, st.Buckets)
	assert.Equal(t, 1, st.EventIDs)
	assert.Equal(t, 1, st.Alerts)
	assert.Equal(t, 1, st.Accounts)

	snap := e.Snapshot()
	require.Len(t, snap.Buckets, 1)
	assert.True(t, snap.Buckets[0].WindowStart.Equal(time.Date(2025, 3, 2, 4, 0, 0, 0, time.UTC)))
	assert.Empty(t, snap.Alerts)
	// lifetime counters are not reset by eviction
	assert.Equal(t, uint64(2), snap.Tiers.Total())

	again := e.Sweep(now)
	assert.Equal(t, SweepStats{Cutoff: st.Cutoff}, again)

	_, err = e.Ingest(old)
	assert.ErrorIs(t, err, models.ErrStaleTimestamp)
}

func TestSweep_PrunesRapidIndexAfterWindow(t *testing.T) {
	e := newTestEngine(t)
	ev := event("r1", testNow.Add(-time.Minute), "10", 0.1)
	ev.AccountID = "acc-1"
	_, err := e.Ingest(ev)
	require.NoError(t, err)
	require.Equal(t, 1, e.feed.rapid.Accounts())

	// inside the rapid window nothing is pruned
	assert.Zero(t, e.Sweep(testNow).Accounts)

	st := e.Sweep(testNow.Add(2 * time.Hour))
	assert.Equal(t, 1, st.Accounts)
	assert.Zero(t, e.feed.rapid.Accounts())
	assert.Equal(t, 1, e.LiveBuckets(), "buckets follow the retention horizon, not the rapid window")
}

func TestIngest_RapidCountAboveThousand(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.RapidTransactionCount = 1000
		c.RapidTransactionWindow = time.Hour
	})
	start := testNow.Add(-50 * time.Minute)
	first := -1
	for i := 0; i < 1500; i++ {
		ev := event(fmt.Sprintf("burst-%d", i), start.Add(time.Duration(i)*2*time.Second), "10", 0.1)
		ev.AccountID = "acc-1"
		alert, err := e.Ingest(ev)
		require.NoError(t, err)
		if alert != nil && first < 0 {
			first = i
			assert.Equal(t, models.CategoryRapidTransactions, alert.Category)
		}
	}
	assert.Equal(t, 1000, first, "the 1001st event in the window is the first rapid one")
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(event("s1", testNow.Add(-time.Minute), "50", 0.9))
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.Buckets[0].FraudCount = 99
	snap.Histogram[0].TotalCount = 99
	snap.Alerts[0].Category = "tampered"

	fresh := e.Snapshot()
	assert.Equal(t, uint64(0), fresh.Buckets[0].FraudCount)
	assert.Equal(t, uint64(1), fresh.Histogram[0].TotalCount)
	assert.Equal(t, models.CategoryPatternAnomaly, fresh.Alerts[0].Category)
}

func TestEngine_ConcurrentIngest(t *testing.T) {
	e := newTestEngine(t)
	const workers = 1000

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		dupes    atomic.Int64
	)
	ingest := func(ev models.TransactionEvent) {
		defer wg.Done()
		_, err := e.Ingest(ev)
		switch {
		case err == nil:
			accepted.Add(1)
		case errors.Is(err, models.ErrDuplicateEvent):
			dupes.Add(1)
		default:
			t.Errorf("unexpected error: %v", err)
		}
		_ = e.Snapshot()
	}

	wg.Add(workers * 2)
	for i := 0; i < workers; i++ {
		ev := event(fmt.Sprintf("c-%d", i), testNow.Add(-time.Duration(i)*time.Second), "42.50", float64(i%100)/100)
		ev.AccountID = fmt.Sprintf("acc-%d", i%7)
		// a retry of the same id races the first delivery
		go ingest(ev)
		go ingest(ev)
	}
	wg.Wait()

	assert.Equal(t, int64(workers), accepted.Load())
	assert.Equal(t, int64(workers), dupes.Load())
	snap := e.Snapshot()
	assert.Equal(t, uint64(workers), snap.Accepted)
	assert.Equal(t, uint64(workers), snap.Tiers.Total())

	var bucketTotal uint64
	amount := decimal.Zero
	for _, b := range snap.Buckets {
		bucketTotal += b.FraudCount + b.SuspectedCount + b.LegitimateCount
		amount = amount.Add(b.TotalAmount)
	}
	assert.Equal(t, uint64(workers), bucketTotal)
	assert.True(t, amount.Equal(decimal.RequireFromString("42500")), amount.String())
	assert.LessOrEqual(t, len(snap.Alerts), DefaultConfig().AlertFeedCapacity)
}
