package aggregation

import (
	"RiskPulse/internal/domain/models"
)

// Snapshot copies every component's state. Components are read one after another,
// each under its own lock, so the result is internally consistent per component
// but may straddle an ingest that lands between two copies.
func (e *Engine) Snapshot() models.AggregateSnapshot {
	snap := models.AggregateSnapshot{AsOf: e.clock().UTC()}
	snap.Buckets = e.bucketer.Buckets()
	snap.Histogram = e.histogram.Buckets()
	snap.Tiers = e.tiering.Tally()
	snap.Alerts = e.feed.Alerts()
	snap.Accepted = e.accepted.Load()
	return snap
}
