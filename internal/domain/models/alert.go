package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertCategory classifies why an alert was raised.
type AlertCategory string

const (
	CategoryHighAmount        AlertCategory = "high_amount"
	CategoryUnusualTime       AlertCategory = "unusual_time"
	CategoryRapidTransactions AlertCategory = "rapid_transactions"
	CategoryLocationAnomaly   AlertCategory = "location_anomaly"
	CategoryPatternAnomaly    AlertCategory = "pattern_anomaly"
)

// AlertCategories returns categories in precedence order. An alert takes the
// first category whose trigger matches.
func AlertCategories() []AlertCategory {
	return []AlertCategory{
		CategoryHighAmount,
		CategoryUnusualTime,
		CategoryRapidTransactions,
		CategoryLocationAnomaly,
		CategoryPatternAnomaly,
	}
}

// Title is the human label shown on the dashboard.
func (c AlertCategory) Title() string {
	switch c {
	case CategoryHighAmount:
		return "High Amount"
	case CategoryUnusualTime:
		return "Unusual Time"
	case CategoryRapidTransactions:
		return "Rapid Transactions"
	case CategoryLocationAnomaly:
		return "Location Anomaly"
	case CategoryPatternAnomaly:
		return "Pattern Anomaly"
	default:
		return string(c)
	}
}

// AlertRecord is one entry of the recent-alerts feed.
type AlertRecord struct {
	ID         string          `json:"id"`
	EventID    string          `json:"eventId"`
	AccountID  string          `json:"accountId,omitempty"`
	Category   AlertCategory   `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurredAt"`
	RiskTier   RiskTier        `json:"riskTier"`
	RiskScore  float64         `json:"riskScore"`
}
