package aggregation

import (
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AmountRange is one configured histogram range [Lower, Upper). Upper nil means unbounded.
type AmountRange struct {
	Label string
	Lower decimal.Decimal
	Upper *decimal.Decimal
}

// HourRange is a half-open local-hour interval [Start, End) that may wrap midnight.
type HourRange struct {
	Start int
	End   int
}

// Contains reports whether hour h (0-23) falls in the range. Start == End is empty.
func (r HourRange) Contains(h int) bool {
	if r.Start == r.End {
		return false
	}
	if r.Start < r.End {
		return h >= r.Start && h < r.End
	}
	return h >= r.Start || h < r.End
}

// Config is loaded once at startup and treated as immutable.
type Config struct {
	WindowWidth      time.Duration
	RetentionHorizon time.Duration
	AmountRanges     []AmountRange

	LowMax  float64 // score <= LowMax is low risk
	HighMin float64 // score >= HighMin is high risk

	AlertThreshold    float64
	AlertFeedCapacity int
	HighAmountCeiling decimal.Decimal

	RapidTransactionWindow time.Duration
	RapidTransactionCount  int

	FutureSkewTolerance time.Duration

	UnusualHours        HourRange
	Location            *time.Location
	LocationReasonCodes []string
	PatternReasonCodes  []string
}

// DefaultAmountRanges mirrors the ranges the dashboard was designed around.
func DefaultAmountRanges() []AmountRange {
	return []AmountRange{
		{Label: "$0-100", Lower: decimal.Zero, Upper: dec(100)},
		{Label: "$100-500", Lower: decimal.NewFromInt(100), Upper: dec(500)},
		{Label: "$500-1K", Lower: decimal.NewFromInt(500), Upper: dec(1000)},
		{Label: "$1K-5K", Lower: decimal.NewFromInt(1000), Upper: dec(5000)},
		{Label: "$5K+", Lower: decimal.NewFromInt(5000)},
	}
}

// DefaultConfig returns a working configuration with 4h windows over 24h.
func DefaultConfig() Config {
	return Config{
		WindowWidth:            4 * time.Hour,
		RetentionHorizon:       24 * time.Hour,
		AmountRanges:           DefaultAmountRanges(),
		LowMax:                 0.3,
		HighMin:                0.7,
		AlertThreshold:         0.8,
		AlertFeedCapacity:      50,
		HighAmountCeiling:      decimal.NewFromInt(10000),
		RapidTransactionWindow: 5 * time.Minute,
		RapidTransactionCount:  5,
		FutureSkewTolerance:    2 * time.Minute,
		UnusualHours:           HourRange{Start: 1, End: 5},
		Location:               time.UTC,
		LocationReasonCodes:    []string{"location_anomaly", "geo_mismatch", "ip_country_mismatch"},
		PatternReasonCodes:     []string{"pattern_anomaly", "velocity", "device_change"},
	}
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// Validate checks every startup invariant. Any failure is a *models.ConfigError.
func (c Config) Validate() error {
	if c.WindowWidth <= 0 {
		return cfgErr("window_width", "must be positive")
	}
	if c.RetentionHorizon < c.WindowWidth {
		return cfgErr("retention_horizon", fmt.Sprintf("must be at least window_width (%s)", c.WindowWidth))
	}
	// written so NaN fails every comparison
	if !(c.LowMax >= 0 && c.HighMin <= 1 && c.LowMax < c.HighMin) {
		return cfgErr("risk_cutpoints", fmt.Sprintf("need 0 <= low_max < high_min <= 1, got %.3f/%.3f", c.LowMax, c.HighMin))
	}
	if !(c.AlertThreshold >= 0 && c.AlertThreshold <= 1) {
		return cfgErr("alert_threshold", "must be within [0,1]")
	}
	if c.AlertFeedCapacity <= 0 {
		return cfgErr("alert_feed_capacity", "must be positive")
	}
	if c.HighAmountCeiling.IsNegative() {
		return cfgErr("high_amount_ceiling", "must not be negative")
	}
	if c.RapidTransactionCount < 0 {
		return cfgErr("rapid_transaction_count", "must not be negative")
	}
	if c.RapidTransactionCount > 0 && c.RapidTransactionWindow <= 0 {
		return cfgErr("rapid_transaction_window", "must be positive when rapid_transaction_count is set")
	}
	if c.FutureSkewTolerance < 0 {
		return cfgErr("future_skew_tolerance", "must not be negative")
	}
	if !validHour(c.UnusualHours.Start) || !validHour(c.UnusualHours.End) {
		return cfgErr("unusual_hours", "hours must be within 0-23")
	}
	return validateRanges(c.AmountRanges)
}

func validHour(h int) bool { return h >= 0 && h <= 23 }

func validateRanges(ranges []AmountRange) error {
	if len(ranges) == 0 {
		return cfgErr("amount_ranges", "at least one range is required")
	}
	if !ranges[0].Lower.IsZero() {
		return cfgErr("amount_ranges[0].lower", "first range must start at 0")
	}
	seen := make(map[string]struct{}, len(ranges))
	for i, r := range ranges {
		field := fmt.Sprintf("amount_ranges[%d]", i)
		if r.Label == "" {
			return cfgErr(field+".label", "must not be empty")
		}
		if _, dup := seen[r.Label]; dup {
			return cfgErr(field+".label", fmt.Sprintf("duplicate label %q", r.Label))
		}
		seen[r.Label] = struct{}{}

		last := i == len(ranges)-1
		if r.Upper == nil {
			if !last {
				return cfgErr(field+".upper", "only the last range may be unbounded")
			}
		} else {
			if last {
				return cfgErr(field+".upper", "last range must be unbounded")
			}
			if !r.Upper.GreaterThan(r.Lower) {
				return cfgErr(field, "upper must be greater than lower")
			}
		}
		if i > 0 {
			prev := ranges[i-1]
			switch c := r.Lower.Cmp(*prev.Upper); {
			case c > 0:
				return cfgErr(field+".lower", fmt.Sprintf("gap after %s", prev.Upper.String()))
			case c < 0:
				return cfgErr(field+".lower", fmt.Sprintf("overlaps previous range ending at %s", prev.Upper.String()))
			}
		}
	}
	return nil
}

func cfgErr(field, reason string) error {
	return &models.ConfigError{Field: field, Reason: reason}
}
