package aggregation

import (
	"sort"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/pkg/util"
)

// TimeBucketer keeps one counter set per aligned time window.
type TimeBucketer struct {
	width   time.Duration
	mu      sync.RWMutex
	buckets map[int64]*models.TimeBucket // keyed by window start unix nanos
}

// NewTimeBucketer creates a bucketer for windows of the given width.
func NewTimeBucketer(width time.Duration) *TimeBucketer {
	return &TimeBucketer{width: width, buckets: make(map[int64]*models.TimeBucket)}
}

// WindowStart returns the aligned start of the window containing t.
func (b *TimeBucketer) WindowStart(t time.Time) time.Time {
	return util.AlignWindow(t, b.width)
}

// Record adds the event to its window, creating the window if absent.
func (b *TimeBucketer) Record(ev models.TransactionEvent, verdict models.FraudVerdict) {
	start := b.WindowStart(ev.Timestamp)
	key := start.UnixNano()

	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &models.TimeBucket{WindowStart: start}
		b.buckets[key] = bk
	}
	switch verdict {
	case models.VerdictConfirmedFraud:
		bk.FraudCount++
	case models.VerdictSuspectedFraud:
		bk.SuspectedCount++
	default:
		bk.LegitimateCount++
	}
	bk.TotalAmount = bk.TotalAmount.Add(ev.Amount)
}

// Sweep removes windows starting before cutoff and returns how many were removed.
func (b *TimeBucketer) Sweep(cutoff time.Time) int {
	c := cutoff.UnixNano()
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for k := range b.buckets {
		if k < c {
			delete(b.buckets, k)
			removed++
		}
	}
	return removed
}

// Buckets returns a copy of all windows ordered by start time.
func (b *TimeBucketer) Buckets() []models.TimeBucket {
	b.mu.RLock()
	out := make([]models.TimeBucket, 0, len(b.buckets))
	for _, bk := range b.buckets {
		out = append(out, *bk)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].WindowStart.Before(out[j].WindowStart) })
	return out
}

// Len returns the number of live windows.
func (b *TimeBucketer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buckets)
}
