package usecase

import (
	"context"
	"errors"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// Event sources, used as metric labels.
const (
	SourceKafka = "kafka"
	SourceHTTP  = "http"
)

// AlertSink receives alerts for downstream delivery. Submit must not block.
type AlertSink interface {
	Submit(a models.AlertRecord) bool
}

// ArchiveSink receives accepted events and alerts for archival.
type ArchiveSink interface {
	AddEvent(ev models.TransactionEvent)
	AddAlert(a models.AlertRecord)
}

// IngestService is the single path by which events reach the engine,
// whatever transport they arrived on.
type IngestService struct {
	engines *EngineHolder
	alerts  AlertSink
	archive ArchiveSink
	metrics domrepo.Metrics
	log     *applogger.Logger
}

type IngestOption func(*IngestService)

func WithAlertSink(s AlertSink) IngestOption {
	return func(svc *IngestService) { svc.alerts = s }
}

func WithArchiveSink(s ArchiveSink) IngestOption {
	return func(svc *IngestService) { svc.archive = s }
}

func NewIngestService(engines *EngineHolder, metrics domrepo.Metrics, l *applogger.Logger, opts ...IngestOption) *IngestService {
	if l == nil {
		l = applogger.Nop()
	}
	s := &IngestService{engines: engines, metrics: metrics, log: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest feeds ev to the engine and fans accepted events and raised alerts
// out to the configured sinks. Rejections come back as *models.IngressError.
func (s *IngestService) Ingest(_ context.Context, source string, ev models.TransactionEvent) (*models.AlertRecord, error) {
	eng, err := s.engines.Get()
	if err != nil {
		s.metrics.RecordError("engine_unavailable")
		return nil, err
	}

	start := time.Now()
	alert, err := eng.Ingest(ev)
	s.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	if err != nil {
		s.Reject(source, err)
		return nil, err
	}

	s.metrics.RecordEventIngested(source, domrepo.ResultAccepted)
	if s.archive != nil {
		s.archive.AddEvent(ev)
	}
	if alert != nil {
		s.metrics.RecordAlert(string(alert.Category))
		if s.alerts != nil && !s.alerts.Submit(*alert) {
			s.log.Warn("alert not queued for publishing", applogger.String("alert_id", alert.ID))
		}
		if s.archive != nil {
			s.archive.AddAlert(*alert)
		}
	}
	return alert, nil
}

// Reject counts an event refused before or by the engine.
func (s *IngestService) Reject(source string, err error) {
	var ie *models.IngressError
	if !errors.As(err, &ie) {
		return
	}
	s.metrics.RecordEventIngested(source, domrepo.ResultRejected)
	s.metrics.RecordRejection(ie.Code())
	s.log.Debug("event rejected",
		applogger.String("source", source),
		applogger.String("event_id", ie.EventID),
		applogger.String("code", ie.Code()),
		applogger.String("reason", ie.Reason),
	)
}
