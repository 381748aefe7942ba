package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardView is the read model served to the dashboard.
type DashboardView struct {
	GeneratedAt      time.Time         `json:"generatedAt"`
	Currency         string            `json:"currency"`
	Stats            DashboardStats    `json:"stats"`
	TimeSeries       []TimeSeriesPoint `json:"timeSeries"`
	AmountHistogram  []HistogramPoint  `json:"amountHistogram"`
	RiskDistribution RiskDistribution  `json:"riskDistribution"`
	Alerts           []AlertView       `json:"alerts"`
}

// DashboardStats backs the stat cards. Counts cover the retained windows;
// AcceptedTotal is lifetime.
type DashboardStats struct {
	TotalTransactions uint64          `json:"totalTransactions"`
	FraudDetected     uint64          `json:"fraudDetected"`
	FraudRate         float64         `json:"fraudRate"` // percent
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	ActiveAlerts      int             `json:"activeAlerts"`
	AcceptedTotal     uint64          `json:"acceptedTotal"`
}

// TimeSeriesPoint is one window of the fraud/legitimate chart.
// FraudulentCount includes SuspectedCount.
type TimeSeriesPoint struct {
	WindowLabel     string          `json:"windowLabel"`
	WindowStart     time.Time       `json:"windowStart"`
	FraudulentCount uint64          `json:"fraudulentCount"`
	SuspectedCount  uint64          `json:"suspectedCount"`
	LegitimateCount uint64          `json:"legitimateCount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}

type HistogramPoint struct {
	RangeLabel string `json:"rangeLabel"`
	TotalCount uint64 `json:"totalCount"`
	FraudCount uint64 `json:"fraudCount"`
}

// AlertView is an alert as listed on the dashboard.
type AlertView struct {
	ID         string          `json:"id"`
	Category   AlertCategory   `json:"category"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurredAt"`
	Age        string          `json:"age"`
	RiskTier   RiskTier        `json:"riskTier"`
}
