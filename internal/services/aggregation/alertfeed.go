package aggregation

import (
	"sort"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertFeed keeps the most recent alerts, newest first, up to a fixed capacity.
type AlertFeed struct {
	threshold    float64
	ceiling      decimal.Decimal
	capacity     int
	rapidCount   int
	unusualHours HourRange
	loc          *time.Location
	locCodes     map[string]struct{}
	tiering      *RiskTiering
	rapid        *rapidIndex
	newID        func() string

	mu     sync.RWMutex
	alerts []models.AlertRecord // sorted by OccurredAt desc
}

// NewAlertFeed builds a feed from a validated config. tiering is only used to
// label alerts with their tier; it is not written to.
func NewAlertFeed(cfg Config, tiering *RiskTiering) *AlertFeed {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &AlertFeed{
		threshold:    cfg.AlertThreshold,
		ceiling:      cfg.HighAmountCeiling,
		capacity:     cfg.AlertFeedCapacity,
		rapidCount:   cfg.RapidTransactionCount,
		unusualHours: cfg.UnusualHours,
		loc:          loc,
		locCodes:     util.CodeSet(cfg.LocationReasonCodes),
		tiering:      tiering,
		rapid:        newRapidIndex(cfg.RapidTransactionWindow, cfg.RapidTransactionCount+1),
		newID:        uuid.NewString,
		alerts:       make([]models.AlertRecord, 0, cfg.AlertFeedCapacity),
	}
}

// Consider evaluates an accepted event and inserts an alert when it qualifies.
// The created alert is returned even if it was immediately evicted from a full feed.
func (f *AlertFeed) Consider(ev models.TransactionEvent) *models.AlertRecord {
	rapid := f.observeRapid(ev)
	highAmount := ev.Amount.GreaterThanOrEqual(f.ceiling)
	if ev.RiskScore < f.threshold && !highAmount && !rapid {
		return nil
	}

	rec := models.AlertRecord{
		ID:         f.newID(),
		EventID:    ev.ID,
		AccountID:  ev.AccountID,
		Category:   f.categorize(ev, highAmount, rapid),
		Amount:     ev.Amount,
		OccurredAt: ev.Timestamp,
		RiskTier:   f.tiering.Tier(ev.RiskScore),
		RiskScore:  ev.RiskScore,
	}
	f.insert(rec)
	return &rec
}

func (f *AlertFeed) observeRapid(ev models.TransactionEvent) bool {
	if ev.AccountID == "" {
		return false
	}
	n := f.rapid.Observe(ev.AccountID, ev.Timestamp)
	return f.rapidCount > 0 && n > f.rapidCount
}

// categorize returns the first category in precedence order whose trigger matches.
func (f *AlertFeed) categorize(ev models.TransactionEvent, highAmount, rapid bool) models.AlertCategory {
	switch {
	case highAmount:
		return models.CategoryHighAmount
	case f.unusualHours.Contains(ev.Timestamp.In(f.loc).Hour()):
		return models.CategoryUnusualTime
	case rapid:
		return models.CategoryRapidTransactions
	case ev.HasReason(f.locCodes):
		return models.CategoryLocationAnomaly
	default:
		// pattern reason codes and anything unmatched
		return models.CategoryPatternAnomaly
	}
}

func (f *AlertFeed) insert(rec models.AlertRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// first position whose entry is not newer than rec; ties go behind the new one
	i := sort.Search(len(f.alerts), func(i int) bool {
		return !f.alerts[i].OccurredAt.After(rec.OccurredAt)
	})
	if len(f.alerts) >= f.capacity && i >= len(f.alerts) {
		return
	}
	f.alerts = append(f.alerts, models.AlertRecord{})
	copy(f.alerts[i+1:], f.alerts[i:])
	f.alerts[i] = rec
	if len(f.alerts) > f.capacity {
		f.alerts = f.alerts[:f.capacity]
	}
}

// Sweep drops alerts that occurred before cutoff and prunes rapid-index
// timestamps before rapidCutoff.
func (f *AlertFeed) Sweep(cutoff, rapidCutoff time.Time) (alerts, accounts int) {
	f.mu.Lock()
	i := sort.Search(len(f.alerts), func(i int) bool {
		return f.alerts[i].OccurredAt.Before(cutoff)
	})
	alerts = len(f.alerts) - i
	for j := i; j < len(f.alerts); j++ {
		f.alerts[j] = models.AlertRecord{}
	}
	f.alerts = f.alerts[:i]
	f.mu.Unlock()

	accounts = f.rapid.Sweep(rapidCutoff)
	return alerts, accounts
}

// Alerts returns a copy of the feed, newest first.
func (f *AlertFeed) Alerts() []models.AlertRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.AlertRecord, len(f.alerts))
	copy(out, f.alerts)
	return out
}

func (f *AlertFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.alerts)
}
