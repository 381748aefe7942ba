package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	mid "RiskPulse/internal/middleware"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/services/aggregation"
	"RiskPulse/internal/usecase"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	inits, closes atomic.Int32
}

func (a *fakeArchive) Init(context.Context) error {
	a.inits.Add(1)
	return nil
}

func (a *fakeArchive) StoreEvents(context.Context, []models.TransactionEvent) error { return nil }
func (a *fakeArchive) StoreAlerts(context.Context, []models.AlertRecord) error      { return nil }
func (a *fakeArchive) Health(context.Context) error                                 { return nil }

func (a *fakeArchive) Close() error {
	a.closes.Add(1)
	return nil
}

type fakePublisher struct{ closes atomic.Int32 }

func (p *fakePublisher) PublishAlerts(context.Context, []models.AlertRecord) error { return nil }

func (p *fakePublisher) Close() error {
	p.closes.Add(1)
	return nil
}

func TestApp_RunContextLifecycle(t *testing.T) {
	cfg, err := config.Parse([]byte("environment: development\n"))
	require.NoError(t, err)
	l := applogger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	engines := usecase.NewEngineHolderFromConfig(aggregation.DefaultConfig())
	archive := &fakeArchive{}
	pub := &fakePublisher{}
	archiver := usecase.NewEventArchiver(archive, 10, time.Second, m, l)
	dispatcher := mid.NewAlertDispatcher(pub, m, mid.WithDispatcherLogger(l))

	app := New(cfg, l, Components{
		Engines:    engines,
		HTTP:       xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics("", reg, reg)),
		Sweeper:    usecase.NewRetentionSweeper(engines, time.Minute, m, l),
		Limiter:    ratelimit.New(10, 1),
		Dispatcher: dispatcher,
		Publisher:  pub,
		Archiver:   archiver,
		Archive:    archive,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, func() bool { return archive.inits.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}
	assert.Equal(t, int32(1), archive.closes.Load())
	assert.Equal(t, int32(1), pub.closes.Load())
}
