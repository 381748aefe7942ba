package aggregation

import (
	"sync"

	"RiskPulse/internal/domain/models"
)

// RiskTiering maps scores to tiers and keeps a running tally.
type RiskTiering struct {
	lowMax  float64
	highMin float64

	mu    sync.RWMutex
	tally models.RiskTierTally
}

// NewRiskTiering expects lowMax < highMin, as checked by Config.Validate.
func NewRiskTiering(lowMax, highMin float64) *RiskTiering {
	return &RiskTiering{lowMax: lowMax, highMin: highMin}
}

// Tier classifies a score.
func (t *RiskTiering) Tier(score float64) models.RiskTier {
	switch {
	case score <= t.lowMax:
		return models.RiskLow
	case score >= t.highMin:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

// Record tallies the score and returns its tier.
func (t *RiskTiering) Record(score float64) models.RiskTier {
	tier := t.Tier(score)
	t.mu.Lock()
	switch tier {
	case models.RiskLow:
		t.tally.Low++
	case models.RiskHigh:
		t.tally.High++
	default:
		t.tally.Medium++
	}
	t.mu.Unlock()
	return tier
}

// Tally returns a copy of the counts.
func (t *RiskTiering) Tally() models.RiskTierTally {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tally
}

// Distribution returns tier percentages derived from the current tally.
func (t *RiskTiering) Distribution() models.RiskDistribution {
	return t.Tally().Distribution()
}
