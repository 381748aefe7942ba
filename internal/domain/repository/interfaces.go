package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
)

// Results recorded by Metrics.RecordEventIngested.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultDecode   = "decode_error"
)

// AlertPublisher ships alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.AlertRecord) error
	Close() error
}

// EventArchive keeps accepted events and alerts beyond the in-memory retention horizon.
type EventArchive interface {
	Init(ctx context.Context) error // ensure tables
	StoreEvents(ctx context.Context, events []models.TransactionEvent) error
	StoreAlerts(ctx context.Context, alerts []models.AlertRecord) error
	Health(ctx context.Context) error
	Close() error
}

// ViewCache stores rendered dashboard payloads.
type ViewCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Metrics interface {
	RecordEventIngested(source, result string)
	RecordRejection(code string)
	RecordAlert(category string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetFeedSize(n int)
	SetLiveBuckets(n int)
}
