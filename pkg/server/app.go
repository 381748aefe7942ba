package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	domrepo "RiskPulse/internal/domain/repository"
	mid "RiskPulse/internal/middleware"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/usecase"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
)

// Components are the parts assembled by DI. Optional parts are nil when
// disabled in configuration.
type Components struct {
	Engines    *usecase.EngineHolder
	HTTP       *xhttp.Server
	Sweeper    *usecase.RetentionSweeper
	Limiter    *ratelimit.Limiter
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	Dispatcher *mid.AlertDispatcher
	Publisher  domrepo.AlertPublisher
	Archiver   *usecase.EventArchiver
	Archive    domrepo.EventArchive
	ViewCache  domrepo.ViewCache
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components

	wg sync.WaitGroup
}

func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: l, c: c}
}

// Run starts every component and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := a.c.Engines.Get(); err != nil {
		a.log.Error("aggregation engine unavailable", applogger.Error(err))
	}

	if a.c.Archive != nil {
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.c.Archive.Init(initCtx)
		initCancel()
		if err != nil {
			a.log.Error("archive init failed", applogger.Error(err))
			return err
		}
	}

	a.goRun(func() { a.c.Sweeper.Run(bg) })
	if a.c.Limiter != nil {
		a.goRun(func() { a.pruneLimiter(bg) })
	}
	if a.c.Archiver != nil {
		a.goRun(func() { a.c.Archiver.Run(bg) })
		a.log.Info("event archiver started", applogger.String("database", a.cfg.ClickHouse.Database))
	}
	if a.c.Dispatcher != nil {
		a.c.Dispatcher.Start(bg)
		a.log.Info("alert dispatcher started", applogger.String("topic", a.cfg.Kafka.AlertsTopic))
	}

	if a.c.Consumer != nil && a.c.Handler != nil {
		a.c.Consumer.RegisterHandler(a.c.Handler)
		if err := a.c.Consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.c.Handler.Topic()))
	}

	if err := a.c.HTTP.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(cancel)
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.c.Limiter.Prune(10 * time.Minute)
		}
	}
}

// shutdown stops intake first, then drains the background writers, then
// closes clients.
func (a *App) shutdown(cancelBackground context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.c.HTTP.ShutdownTimeout())
	defer cancel()

	if err := a.c.HTTP.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.c.Dispatcher != nil {
		a.c.Dispatcher.Stop()
	}
	cancelBackground()
	a.wg.Wait()

	if a.c.Publisher != nil {
		if err := a.c.Publisher.Close(); err != nil {
			a.log.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if a.c.Archive != nil {
		if err := a.c.Archive.Close(); err != nil {
			a.log.Warn("archive close error", applogger.Error(err))
		}
	}
	if cl, ok := a.c.ViewCache.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			a.log.Warn("view cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
