package usecase

import (
	"sync"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/services/aggregation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newHolder(t *testing.T, now time.Time) *EngineHolder {
	t.Helper()
	h := NewEngineHolderFromConfig(aggregation.DefaultConfig(), aggregation.WithClock(func() time.Time { return now }))
	_, err := h.Get()
	require.NoError(t, err)
	return h
}

func scored(id string, ts time.Time, amount string, score float64) models.TransactionEvent {
	return models.TransactionEvent{
		ID:        id,
		Timestamp: ts,
		Amount:    decimal.RequireFromString(amount),
		RiskScore: score,
	}
}

// recMetrics counts what the usecases report.
type recMetrics struct {
	mu         sync.Mutex
	ingested   map[string]int // source/result
	rejections map[string]int
	alerts     map[string]int
	errors     map[string]int
	feed       int
	buckets    int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{
		ingested:   map[string]int{},
		rejections: map[string]int{},
		alerts:     map[string]int{},
		errors:     map[string]int{},
		feed:       -1,
		buckets:    -1,
	}
}

func (m *recMetrics) RecordEventIngested(source, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested[source+"/"+result]++
}

func (m *recMetrics) RecordRejection(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[code]++
}

func (m *recMetrics) RecordAlert(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[category]++
}

func (m *recMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recMetrics) RecordLatency(string, float64) {}

func (m *recMetrics) SetFeedSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = n
}

func (m *recMetrics) SetLiveBuckets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = n
}

type sliceSink struct {
	mu     sync.Mutex
	events []models.TransactionEvent
	alerts []models.AlertRecord
}

func (s *sliceSink) Submit(a models.AlertRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return true
}

func (s *sliceSink) AddEvent(ev models.TransactionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sliceSink) AddAlert(a models.AlertRecord) { s.Submit(a) }

func (s *sliceSink) counts() (events, alerts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), len(s.alerts)
}
