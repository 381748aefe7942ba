package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	pkgkafka "RiskPulse/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	schema  []string
	queries []string
	rows    [][][]any
	err     error
}

func (f *fakeConn) InitSchema(_ context.Context, stmts []string) error {
	f.schema = stmts
	return f.err
}

func (f *fakeConn) InsertBatch(_ context.Context, q string, rows [][]any) error {
	f.queries = append(f.queries, q)
	f.rows = append(f.rows, rows)
	return f.err
}

func (f *fakeConn) Health(context.Context) error { return f.err }
func (f *fakeConn) Close() error                 { return nil }

func TestClickHouseArchive_StoreEvents(t *testing.T) {
	conn := &fakeConn{}
	a := NewClickHouseArchive(conn, nil)
	fixed := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	require.NoError(t, a.Init(context.Background()))
	assert.Len(t, conn.schema, 2)

	fraud := true
	events := []models.TransactionEvent{
		{ID: "tx-1", AccountID: "acc", Timestamp: fixed.Add(-time.Hour), Amount: decimal.RequireFromString("12.5"), RiskScore: 0.4, ConfirmedFraud: &fraud},
		{ID: "tx-2", Timestamp: fixed, Amount: decimal.NewFromInt(3), RiskScore: 0.1},
	}
	require.NoError(t, a.StoreEvents(context.Background(), events))
	require.Len(t, conn.queries, 1)
	assert.True(t, strings.HasPrefix(conn.queries[0], "INSERT INTO scored_events"))

	rows := conn.rows[0]
	require.Len(t, rows, 2)
	assert.Equal(t, "tx-1", rows[0][1])
	assert.Equal(t, &fraud, rows[0][6])
	assert.Equal(t, []string{}, rows[1][5], "nil reason codes become an empty array")
	assert.Equal(t, fixed, rows[1][7])
}

func TestClickHouseArchive_EmptyAndErrors(t *testing.T) {
	conn := &fakeConn{}
	a := NewClickHouseArchive(conn, nil)
	require.NoError(t, a.StoreEvents(context.Background(), nil))
	require.NoError(t, a.StoreAlerts(context.Background(), nil))
	assert.Empty(t, conn.queries)

	conn.err = errors.New("boom")
	err := a.StoreAlerts(context.Background(), []models.AlertRecord{{ID: "a", Category: models.CategoryHighAmount}})
	require.Error(t, err)
	assert.ErrorIs(t, err, conn.err)
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaAlertPublisher_PublishAlerts(t *testing.T) {
	w := &captureWriter{}
	prod := pkgkafka.NewProducerWithWriter(w, "none", prometheus.NewRegistry())
	p := NewKafkaAlertPublisher(prod, "fraud-alerts")

	at := time.Date(2025, 3, 1, 0, 10, 0, 0, time.UTC)
	alerts := []models.AlertRecord{
		{ID: "a1", EventID: "tx-1", AccountID: "acc-1", Category: models.CategoryHighAmount,
			Amount: decimal.NewFromInt(15000), OccurredAt: at, RiskTier: models.RiskHigh, RiskScore: 0.95},
		{ID: "a2", EventID: "tx-2", Category: models.CategoryPatternAnomaly, OccurredAt: at},
	}
	require.NoError(t, p.PublishAlerts(context.Background(), alerts))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "fraud-alerts", w.msgs[0].Topic)
	assert.Equal(t, "acc-1", string(w.msgs[0].Key))
	assert.Equal(t, "tx-2", string(w.msgs[1].Key), "falls back to the event id")

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "High Amount", got["title"])
	assert.Equal(t, "15000", got["amount"])
	assert.Equal(t, "high", got["riskTier"])

	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "category", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "high_amount", string(w.msgs[0].Headers[0].Value))
}
