package repository

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// chConn is the part of pkg/clickhouse.Client the archive needs.
type chConn interface {
	InitSchema(ctx context.Context, stmts []string) error
	InsertBatch(ctx context.Context, query string, rows [][]any) error
	Health(ctx context.Context) error
	Close() error
}

const (
	eventsTable = "scored_events"
	alertsTable = "fraud_alerts"
)

// Both tables are ReplacingMergeTree keyed by id, so a replayed batch
// collapses onto the rows already stored.
var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + eventsTable + ` (
		ts              DateTime64(3, 'UTC'),
		event_id        String,
		account_id      String,
		amount          Decimal(18, 4),
		risk_score      Float64,
		reason_codes    Array(LowCardinality(String)),
		confirmed_fraud Nullable(Bool),
		archived_at     DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(archived_at)
	PARTITION BY toYYYYMM(ts)
	ORDER BY (event_id)`,
	`CREATE TABLE IF NOT EXISTS ` + alertsTable + ` (
		occurred_at DateTime64(3, 'UTC'),
		alert_id    String,
		event_id    String,
		account_id  String,
		category    LowCardinality(String),
		amount      Decimal(18, 4),
		risk_tier   LowCardinality(String),
		risk_score  Float64,
		archived_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(archived_at)
	PARTITION BY toYYYYMM(occurred_at)
	ORDER BY (alert_id)`,
}

// ClickHouseArchive stores accepted events and raised alerts in ClickHouse.
type ClickHouseArchive struct {
	conn chConn
	l    *applogger.Logger
	now  func() time.Time
}

// NewClickHouseArchive wraps a ClickHouse client.
func NewClickHouseArchive(conn chConn, l *applogger.Logger) *ClickHouseArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseArchive{conn: conn, l: l, now: time.Now}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	if err := a.conn.InitSchema(ctx, archiveSchema); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) StoreEvents(ctx context.Context, events []models.TransactionEvent) error {
	if len(events) == 0 {
		return nil
	}
	archivedAt := a.now().UTC()
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		codes := ev.ReasonCodes
		if codes == nil {
			codes = []string{}
		}
		rows = append(rows, []any{
			ev.Timestamp.UTC(),
			ev.ID,
			ev.AccountID,
			ev.Amount,
			ev.RiskScore,
			codes,
			ev.ConfirmedFraud,
			archivedAt,
		})
	}
	q := "INSERT INTO " + eventsTable + " (ts, event_id, account_id, amount, risk_score, reason_codes, confirmed_fraud, archived_at)"
	if err := a.conn.InsertBatch(ctx, q, rows); err != nil {
		a.l.Error("clickhouse store events failed",
			applogger.String("table", eventsTable),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("store events: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) StoreAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	archivedAt := a.now().UTC()
	rows := make([][]any, 0, len(alerts))
	for _, al := range alerts {
		rows = append(rows, []any{
			al.OccurredAt.UTC(),
			al.ID,
			al.EventID,
			al.AccountID,
			string(al.Category),
			al.Amount,
			string(al.RiskTier),
			al.RiskScore,
			archivedAt,
		})
	}
	q := "INSERT INTO " + alertsTable + " (occurred_at, alert_id, event_id, account_id, category, amount, risk_tier, risk_score, archived_at)"
	if err := a.conn.InsertBatch(ctx, q, rows); err != nil {
		a.l.Error("clickhouse store alerts failed",
			applogger.String("table", alertsTable),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("store alerts: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.conn.Health(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return a.conn.Close()
}

var _ domrepo.EventArchive = (*ClickHouseArchive)(nil)
