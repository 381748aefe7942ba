package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsIngested *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	alertsRaised   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	feedSize       prometheus.Gauge
	liveBuckets    prometheus.Gauge
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg. Tests pass prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		eventsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_events_total",
				Help: "Scored transaction events seen, by source and result",
			},
			[]string{"source", "result"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_events_rejected_total",
				Help: "Rejected events by error code",
			},
			[]string{"code"},
		),
		alertsRaised: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_alerts_total",
				Help: "Alerts raised by category",
			},
			[]string{"category"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		feedSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "riskpulse_alert_feed_size",
			Help: "Alerts currently held in the recent-alerts feed",
		}),
		liveBuckets: f.NewGauge(prometheus.GaugeOpts{
			Name: "riskpulse_live_time_buckets",
			Help: "Time windows currently retained",
		}),
	}
}

func (r *Recorder) RecordEventIngested(source, result string) {
	r.eventsIngested.WithLabelValues(source, result).Inc()
}

func (r *Recorder) RecordRejection(code string) {
	r.rejections.WithLabelValues(code).Inc()
}

func (r *Recorder) RecordAlert(category string) {
	r.alertsRaised.WithLabelValues(category).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) SetFeedSize(n int) { r.feedSize.Set(float64(n)) }

func (r *Recorder) SetLiveBuckets(n int) { r.liveBuckets.Set(float64(n)) }

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordEventIngested(string, string) {}
func (Nop) RecordRejection(string)             {}
func (Nop) RecordAlert(string)                 {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
func (Nop) SetFeedSize(int)                    {}
func (Nop) SetLiveBuckets(int)                 {}
