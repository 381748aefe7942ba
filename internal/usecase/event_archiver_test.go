package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memArchive struct {
	mu      sync.Mutex
	events  []models.TransactionEvent
	alerts  []models.AlertRecord
	batches int
	fail    bool
}

func (a *memArchive) Init(context.Context) error { return nil }

func (a *memArchive) StoreEvents(_ context.Context, evs []models.TransactionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("clickhouse down")
	}
	a.batches++
	a.events = append(a.events, evs...)
	return nil
}

func (a *memArchive) StoreAlerts(_ context.Context, als []models.AlertRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("clickhouse down")
	}
	a.alerts = append(a.alerts, als...)
	return nil
}

func (a *memArchive) Health(context.Context) error { return nil }
func (a *memArchive) Close() error                 { return nil }

func (a *memArchive) stored() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events), len(a.alerts)
}

func TestEventArchiver_FlushesOnBatchAndShutdown(t *testing.T) {
	arch := &memArchive{}
	a := NewEventArchiver(arch, 2, time.Hour, newRecMetrics(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		a.AddEvent(scored(string(rune('a'+i)), testNow, "1", 0.1))
	}
	a.AddAlert(models.AlertRecord{ID: "al-1"})

	require.Eventually(t, func() bool { n, _ := arch.stored(); return n >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	events, alerts := arch.stored()
	assert.Equal(t, 3, events)
	assert.Equal(t, 1, alerts)
}

func TestEventArchiver_KeepsFailedBatchUntilBound(t *testing.T) {
	arch := &memArchive{fail: true}
	m := newRecMetrics()
	a := NewEventArchiver(arch, 2, time.Hour, m, nil)

	events := []models.TransactionEvent{scored("a", testNow, "1", 0.1)}
	var alerts []models.AlertRecord
	a.flush(context.Background(), &events, &alerts)
	assert.Len(t, events, 1, "kept for the next attempt")
	assert.Equal(t, 1, m.errors["archive_events"])

	for i := 0; i < 7; i++ {
		events = append(events, scored("x", testNow, "1", 0.1))
	}
	a.flush(context.Background(), &events, &alerts)
	assert.Empty(t, events, "dropped once past four batches")

	arch.fail = false
	events = append(events, scored("b", testNow, "1", 0.1))
	a.flush(context.Background(), &events, &alerts)
	assert.Empty(t, events)
	n, _ := arch.stored()
	assert.Equal(t, 1, n)
}

func TestEventArchiver_AddDropsWhenFull(t *testing.T) {
	m := newRecMetrics()
	a := NewEventArchiver(&memArchive{}, 1, time.Hour, m, nil)
	for i := 0; i < 5; i++ {
		a.AddEvent(scored("e", testNow, "1", 0.1))
	}
	assert.Equal(t, 1, m.errors["archive_event_dropped"], "buffer holds four batches")
}
