package middleware

import (
	"context"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// AlertDispatcher sits between the engine and the alert publisher. Submit
// never blocks ingestion: alerts are buffered and shipped in batches by a
// background loop, with a capped backoff while the publisher is failing.
type AlertDispatcher struct {
	pub       domrepo.AlertPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	bufSize   int
	batchSize int
	flushTO   time.Duration
	bufCh     chan models.AlertRecord

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type DispatcherOption func(*AlertDispatcher)

// WithBufferSize sets how many alerts may wait for the publisher.
func WithBufferSize(n int) DispatcherOption {
	return func(d *AlertDispatcher) {
		if n > 0 {
			d.bufSize = n
		}
	}
}

// WithBatch sets the batch size and the longest a partial batch waits.
func WithBatch(size int, flush time.Duration) DispatcherOption {
	return func(d *AlertDispatcher) {
		if size > 0 {
			d.batchSize = size
		}
		if flush > 0 {
			d.flushTO = flush
		}
	}
}

func WithDispatcherLogger(l *applogger.Logger) DispatcherOption {
	return func(d *AlertDispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func NewAlertDispatcher(pub domrepo.AlertPublisher, metrics domrepo.Metrics, opts ...DispatcherOption) *AlertDispatcher {
	d := &AlertDispatcher{
		pub:       pub,
		metrics:   metrics,
		log:       applogger.Nop(),
		bufSize:   1000,
		batchSize: 50,
		flushTO:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.bufCh = make(chan models.AlertRecord, d.bufSize)
	return d
}

// Submit queues an alert. It reports false when the buffer is full and the
// alert was dropped.
func (d *AlertDispatcher) Submit(a models.AlertRecord) bool {
	select {
	case d.bufCh <- a:
		return true
	default:
		d.metrics.RecordError("alert_buffer_full")
		return false
	}
}

// Pending is the number of buffered alerts.
func (d *AlertDispatcher) Pending() int { return len(d.bufCh) }

// Start launches the publishing loop. Calling it twice is a no-op.
func (d *AlertDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.loop(ctx)
}

// Stop ends the loop after a final flush of what is already buffered.
func (d *AlertDispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()
	<-done
}

func (d *AlertDispatcher) loop(ctx context.Context) {
	defer close(d.doneCh)
	ticker := time.NewTicker(d.flushTO)
	defer ticker.Stop()

	const minBackoff = 50 * time.Millisecond
	backoff := minBackoff
	batch := make([]models.AlertRecord, 0, d.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.publish(ctx, batch); err != nil {
			if backoff < 2*time.Second {
				backoff *= 2
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			// requeue if space; drop otherwise
			for _, a := range batch {
				if !d.Submit(a) {
					d.metrics.RecordError("alert_dropped")
				}
			}
		} else {
			backoff = minBackoff
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			d.drain(batch)
			return
		case <-d.stopCh:
			d.drain(batch)
			return
		case a := <-d.bufCh:
			batch = append(batch, a)
			if len(batch) >= d.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *AlertDispatcher) publish(ctx context.Context, batch []models.AlertRecord) error {
	start := time.Now()
	if err := d.pub.PublishAlerts(ctx, batch); err != nil {
		d.metrics.RecordError("alert_publish")
		d.log.Warn("alert publish failed", applogger.Int("batch", len(batch)), applogger.Error(err))
		return err
	}
	d.metrics.RecordLatency("alert_publish", time.Since(start).Seconds())
	return nil
}

// drain makes one last attempt for everything still held, bounded by a short timeout.
func (d *AlertDispatcher) drain(batch []models.AlertRecord) {
	// loop is the only reader, so len is stable against concurrent receives
	for len(d.bufCh) > 0 {
		batch = append(batch, <-d.bufCh)
	}
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.publish(ctx, batch); err != nil {
		d.log.Error("alerts dropped on shutdown", applogger.Int("count", len(batch)))
	}
}
