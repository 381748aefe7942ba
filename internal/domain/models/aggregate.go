package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeBucket holds counters for one aligned time window.
type TimeBucket struct {
	WindowStart     time.Time
	FraudCount      uint64 // confirmed by ground truth
	SuspectedCount  uint64 // no ground truth, score above alert threshold
	LegitimateCount uint64
	TotalAmount     decimal.Decimal
}

// AmountRangeBucket holds counters for one amount range [LowerBound, UpperBound).
type AmountRangeBucket struct {
	Label          string
	LowerBound     decimal.Decimal
	UpperBound     *decimal.Decimal // nil for the unbounded top range
	TotalCount     uint64
	FraudCount     uint64
	SuspectedCount uint64
}

// RiskTierTally counts events per tier.
type RiskTierTally struct {
	Low    uint64
	Medium uint64
	High   uint64
}

// Total returns the number of tallied events.
func (t RiskTierTally) Total() uint64 { return t.Low + t.Medium + t.High }

// Distribution derives tier percentages. An empty tally yields all zeros.
func (t RiskTierTally) Distribution() RiskDistribution {
	total := t.Total()
	if total == 0 {
		return RiskDistribution{}
	}
	f := float64(total)
	return RiskDistribution{
		Low:    float64(t.Low) / f * 100,
		Medium: float64(t.Medium) / f * 100,
		High:   float64(t.High) / f * 100,
	}
}

// RiskDistribution is the percentage of events per tier.
type RiskDistribution struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// AggregateSnapshot is an immutable copy of all aggregate state. Safe to share
// between goroutines; nothing holds a reference into engine internals.
type AggregateSnapshot struct {
	AsOf      time.Time
	Accepted  uint64
	Buckets   []TimeBucket        // ascending by WindowStart
	Histogram []AmountRangeBucket // in range order
	Tiers     RiskTierTally
	Alerts    []AlertRecord // newest first
}
