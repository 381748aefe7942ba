package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEvent is a transaction paired with the score assigned by the
// upstream scoring service. Immutable once created.
type TransactionEvent struct {
	ID             string
	AccountID      string // correlated key for rapid-transaction detection, may be empty
	Timestamp      time.Time
	Amount         decimal.Decimal
	RiskScore      float64 // [0,1]
	ReasonCodes    []string
	ConfirmedFraud *bool // ground truth if known
}

// HasReason reports whether any of codes is among the event's reason codes.
func (e TransactionEvent) HasReason(codes map[string]struct{}) bool {
	for _, rc := range e.ReasonCodes {
		if _, ok := codes[rc]; ok {
			return true
		}
	}
	return false
}

// FraudVerdict is how an accepted event is counted in the fraud/legitimate splits.
type FraudVerdict int

const (
	VerdictLegitimate FraudVerdict = iota
	VerdictConfirmedFraud
	// VerdictSuspectedFraud is used when no ground truth exists and the
	// score crossed the alert threshold.
	VerdictSuspectedFraud
)

func (v FraudVerdict) String() string {
	switch v {
	case VerdictConfirmedFraud:
		return "confirmed_fraud"
	case VerdictSuspectedFraud:
		return "suspected_fraud"
	default:
		return "legitimate"
	}
}

// IsFraud is true for both confirmed and suspected fraud.
func (v FraudVerdict) IsFraud() bool { return v != VerdictLegitimate }

// VerdictFor decides the verdict of an event given the alert threshold.
func VerdictFor(e TransactionEvent, alertThreshold float64) FraudVerdict {
	if e.ConfirmedFraud != nil {
		if *e.ConfirmedFraud {
			return VerdictConfirmedFraud
		}
		return VerdictLegitimate
	}
	if e.RiskScore >= alertThreshold {
		return VerdictSuspectedFraud
	}
	return VerdictLegitimate
}

// RiskTier is the coarse band a risk score falls into.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)
