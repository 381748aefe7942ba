package aggregation

import (
	"sort"
	"sync"

	"RiskPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AmountHistogram counts events per configured amount range.
type AmountHistogram struct {
	mu     sync.RWMutex
	ranges []models.AmountRangeBucket
}

// NewAmountHistogram validates the range definitions and builds an empty histogram.
func NewAmountHistogram(ranges []AmountRange) (*AmountHistogram, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	h := &AmountHistogram{ranges: make([]models.AmountRangeBucket, len(ranges))}
	for i, r := range ranges {
		var upper *decimal.Decimal
		if r.Upper != nil {
			u := *r.Upper
			upper = &u
		}
		h.ranges[i] = models.AmountRangeBucket{Label: r.Label, LowerBound: r.Lower, UpperBound: upper}
	}
	return h, nil
}

// indexOf finds the range containing amount. Bounds never change after construction,
// so it needs no lock. Validated ranges start at 0 and cover every non-negative amount.
func (h *AmountHistogram) indexOf(amount decimal.Decimal) int {
	// first range whose upper bound is above amount; the unbounded top range always is
	return sort.Search(len(h.ranges), func(i int) bool {
		u := h.ranges[i].UpperBound
		return u == nil || amount.LessThan(*u)
	})
}

// Record counts the event in its range.
func (h *AmountHistogram) Record(ev models.TransactionEvent, verdict models.FraudVerdict) {
	i := h.indexOf(ev.Amount)
	h.mu.Lock()
	defer h.mu.Unlock()
	r := &h.ranges[i]
	r.TotalCount++
	switch verdict {
	case models.VerdictConfirmedFraud:
		r.FraudCount++
	case models.VerdictSuspectedFraud:
		r.SuspectedCount++
	}
}

// Buckets returns a copy of all ranges in configured order.
func (h *AmountHistogram) Buckets() []models.AmountRangeBucket {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.AmountRangeBucket, len(h.ranges))
	copy(out, h.ranges)
	return out
}

// Total returns the number of recorded events across all ranges.
func (h *AmountHistogram) Total() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var n uint64
	for _, r := range h.ranges {
		n += r.TotalCount
	}
	return n
}
