package usecase

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// EventArchiver batches accepted events and alerts into the archive. Adds
// never block; when the archive falls behind, the overflow is dropped and
// counted. The in-memory aggregates do not depend on it.
type EventArchiver struct {
	archive   domrepo.EventArchive
	metrics   domrepo.Metrics
	log       *applogger.Logger
	batchSize int
	interval  time.Duration
	events    chan models.TransactionEvent
	alerts    chan models.AlertRecord
}

func NewEventArchiver(archive domrepo.EventArchive, batchSize int, interval time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *EventArchiver {
	if l == nil {
		l = applogger.Nop()
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &EventArchiver{
		archive:   archive,
		metrics:   metrics,
		log:       l,
		batchSize: batchSize,
		interval:  interval,
		events:    make(chan models.TransactionEvent, batchSize*4),
		alerts:    make(chan models.AlertRecord, batchSize),
	}
}

func (a *EventArchiver) AddEvent(ev models.TransactionEvent) {
	select {
	case a.events <- ev:
	default:
		a.metrics.RecordError("archive_event_dropped")
	}
}

func (a *EventArchiver) AddAlert(al models.AlertRecord) {
	select {
	case a.alerts <- al:
	default:
		a.metrics.RecordError("archive_alert_dropped")
	}
}

// Run flushes every interval, or sooner when a batch fills, until ctx is
// cancelled. Whatever is buffered then gets one final flush.
func (a *EventArchiver) Run(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()

	events := make([]models.TransactionEvent, 0, a.batchSize)
	alerts := make([]models.AlertRecord, 0, a.batchSize)
	for {
		select {
		case <-ctx.Done():
			for len(a.events) > 0 {
				events = append(events, <-a.events)
			}
			for len(a.alerts) > 0 {
				alerts = append(alerts, <-a.alerts)
			}
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			a.flush(fctx, &events, &alerts)
			cancel()
			return
		case ev := <-a.events:
			events = append(events, ev)
			if len(events)%a.batchSize == 0 {
				a.flush(ctx, &events, &alerts)
			}
		case al := <-a.alerts:
			alerts = append(alerts, al)
			if len(alerts)%a.batchSize == 0 {
				a.flush(ctx, &events, &alerts)
			}
		case <-t.C:
			a.flush(ctx, &events, &alerts)
		}
	}
}

// flush writes both batches. A failed batch is kept for the next flush until
// it grows past four batches, then it is dropped.
func (a *EventArchiver) flush(ctx context.Context, events *[]models.TransactionEvent, alerts *[]models.AlertRecord) {
	if n := len(*events); n > 0 {
		start := time.Now()
		if err := a.archive.StoreEvents(ctx, *events); err != nil {
			a.metrics.RecordError("archive_events")
			if n >= 4*a.batchSize {
				a.log.Error("archive events dropped", applogger.Int("count", n), applogger.Error(err))
				*events = (*events)[:0]
			}
		} else {
			a.metrics.RecordLatency("archive_events", time.Since(start).Seconds())
			*events = (*events)[:0]
		}
	}
	if n := len(*alerts); n > 0 {
		if err := a.archive.StoreAlerts(ctx, *alerts); err != nil {
			a.metrics.RecordError("archive_alerts")
			if n >= 4*a.batchSize {
				a.log.Error("archive alerts dropped", applogger.Int("count", n), applogger.Error(err))
				*alerts = (*alerts)[:0]
			}
		} else {
			*alerts = (*alerts)[:0]
		}
	}
}
