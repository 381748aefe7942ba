package aggregation

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// buildEvents turns generated amounts (in cents) and scores into events with
// distinct ids and timestamps inside the retention horizon of testNow.
func buildEvents(cents []int64, scores []float64) []models.TransactionEvent {
	n := len(cents)
	if len(scores) < n {
		n = len(scores)
	}
	events := make([]models.TransactionEvent, n)
	for i := 0; i < n; i++ {
		events[i] = models.TransactionEvent{
			ID:        fmt.Sprintf("p-%d", i),
			Timestamp: testNow.Add(-time.Duration(i+1) * 37 * time.Second),
			Amount:    decimal.New(cents[i], -2),
			RiskScore: scores[i],
		}
		if i%5 == 0 {
			events[i].ConfirmedFraud = boolPtr(i%10 == 0)
		}
	}
	return events
}

// fingerprint renders a snapshot without alert ids so two engines can be compared.
func fingerprint(s models.AggregateSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "accepted=%d tiers=%+v\n", s.Accepted, s.Tiers)
	for _, bk := range s.Buckets {
		fmt.Fprintf(&b, "bucket %s f=%d s=%d l=%d amt=%s\n",
			bk.WindowStart.Format(time.RFC3339), bk.FraudCount, bk.SuspectedCount, bk.LegitimateCount, bk.TotalAmount.StringFixed(2))
	}
	for _, h := range s.Histogram {
		fmt.Fprintf(&b, "range %s t=%d f=%d s=%d\n", h.Label, h.TotalCount, h.FraudCount, h.SuspectedCount)
	}
	for _, a := range s.Alerts {
		fmt.Fprintf(&b, "alert %s %s %s\n", a.EventID, a.Category, a.OccurredAt.Format(time.RFC3339))
	}
	return b.String()
}

func ingestAll(t *testing.T, events []models.TransactionEvent) models.AggregateSnapshot {
	e, err := New(DefaultConfig(), WithClock(fixedClock(testNow)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for _, ev := range events {
		if _, err := e.Ingest(ev); err != nil {
			t.Fatalf("ingest %s: %v", ev.ID, err)
		}
	}
	return e.Snapshot()
}

func TestProperty_IngestOrderDoesNotMatter(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("any permutation of the same events yields the same aggregates", prop.ForAll(
		func(cents []int64, scores []float64, seed int64) bool {
			events := buildEvents(cents, scores)
			shuffled := make([]models.TransactionEvent, len(events))
			copy(shuffled, events)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			return fingerprint(ingestAll(t, events)) == fingerprint(ingestAll(t, shuffled))
		},
		gen.SliceOfN(120, gen.Int64Range(0, 2_000_000)),
		gen.SliceOfN(120, gen.Float64Range(0, 1)),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_DistributionSumsToHundred(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("tier percentages sum to 100 for a non-empty tally", prop.ForAll(
		func(scores []float64) bool {
			rt := NewRiskTiering(0.3, 0.7)
			for _, s := range scores {
				rt.Record(s)
			}
			d := rt.Distribution()
			if len(scores) == 0 {
				return d == models.RiskDistribution{}
			}
			return math.Abs(d.Low+d.Medium+d.High-100) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.Property("histogram total equals accepted count", prop.ForAll(
		func(cents []int64) bool {
			snap := ingestAll(t, buildEvents(cents, make([]float64, len(cents))))
			var total uint64
			for _, h := range snap.Histogram {
				total += h.TotalCount
			}
			return total == snap.Accepted && snap.Accepted == uint64(len(cents))
		},
		gen.SliceOf(gen.Int64Range(0, 100_000_000)),
	))

	properties.TestingRun(t)
}
