package di

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/repository"
	"RiskPulse/internal/handler/api"
	mid "RiskPulse/internal/middleware"
	internalrepo "RiskPulse/internal/repository"
	"RiskPulse/internal/service/cache"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/services/aggregation"
	"RiskPulse/internal/usecase"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"
	"RiskPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry every component registers on and the
// scrape endpoint gathers from.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegisterer(reg)
}

// ProvideEngineHolder builds the aggregation engine. A construction failure
// leaves the holder empty so queries report the engine as unavailable.
func ProvideEngineHolder(cfg *config.Config, l *applogger.Logger) *usecase.EngineHolder {
	ec, err := cfg.EngineConfig()
	if err != nil {
		h := usecase.NewEngineHolder()
		h.Fail(err)
		l.Error("engine configuration rejected", applogger.Error(err))
		return h
	}
	h := usecase.NewEngineHolderFromConfig(ec)
	if cause := h.Cause(); cause != nil {
		l.Error("engine construction failed", applogger.Error(cause))
		return h
	}
	l.Info("engine ready",
		applogger.Strings("amount_ranges", rangeLabels(ec.AmountRanges)),
		applogger.Strings("location_reason_codes", ec.LocationReasonCodes),
		applogger.Strings("pattern_reason_codes", ec.PatternReasonCodes),
	)
	return h
}

func rangeLabels(ranges []aggregation.AmountRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.Label
	}
	return out
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideEventArchive wraps the client in the archive repository. The schema
// is created by App.Run.
func ProvideEventArchive(client *pkgch.Client, l *applogger.Logger) repository.EventArchive {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(client, l)
}

func ProvideEventArchiver(archive repository.EventArchive, cfg *config.Config, m repository.Metrics, l *applogger.Logger) *usecase.EventArchiver {
	if archive == nil {
		return nil
	}
	return usecase.NewEventArchiver(archive, cfg.ClickHouse.BatchSize, cfg.ClickHouse.FlushInterval, m, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

func ProvideAlertDispatcher(pub repository.AlertPublisher, m repository.Metrics, l *applogger.Logger) *mid.AlertDispatcher {
	if pub == nil {
		return nil
	}
	return mid.NewAlertDispatcher(pub, m,
		mid.WithBufferSize(1000),
		mid.WithBatch(50, 500*time.Millisecond),
		mid.WithDispatcherLogger(l),
	)
}

// ProvideIngestService attaches only the sinks that are enabled; a nil
// pointer must not become a non-nil interface.
func ProvideIngestService(
	engines *usecase.EngineHolder,
	m repository.Metrics,
	l *applogger.Logger,
	dispatcher *mid.AlertDispatcher,
	archiver *usecase.EventArchiver,
) *usecase.IngestService {
	var opts []usecase.IngestOption
	if dispatcher != nil {
		opts = append(opts, usecase.WithAlertSink(dispatcher))
	}
	if archiver != nil {
		opts = append(opts, usecase.WithArchiveSink(archiver))
	}
	return usecase.NewIngestService(engines, m, l, opts...)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaEventsHandler creates the handler for the scored events topic.
func ProvideKafkaEventsHandler(cfg *config.Config, ingest *usecase.IngestService, m repository.Metrics) *usecase.KafkaEventsHandler {
	return usecase.NewKafkaEventsHandler(cfg.Kafka.EventsTopic, ingest, m)
}

// ProvideViewCache uses Redis when enabled so replicas share rendered views,
// and an in-process cache otherwise.
func ProvideViewCache(cfg *config.Config) (repository.ViewCache, error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(), nil
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

func ProvideDashboardService(cfg *config.Config, engines *usecase.EngineHolder, vc repository.ViewCache, l *applogger.Logger) *usecase.DashboardService {
	return usecase.NewDashboardService(engines, l,
		usecase.WithViewCache(vc, cfg.Dashboard.CacheTTL),
		usecase.WithCurrency(cfg.Dashboard.Currency),
	)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Ingest.RateCapacity, cfg.Ingest.RateRefill)
}

func ProvideRetentionSweeper(cfg *config.Config, engines *usecase.EngineHolder, m repository.Metrics, l *applogger.Logger) *usecase.RetentionSweeper {
	return usecase.NewRetentionSweeper(engines, cfg.Engine.SweepInterval, m, l)
}

// ProvideHTTPServer registers the dashboard API and the live stream on one Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	dash *usecase.DashboardService,
	ingest *usecase.IngestService,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewDashboardEchoHandler(l, dash, ingest, limiter, cfg.Dashboard.AlertLimit),
		api.NewDashboardStream(l, dash, cfg.Dashboard.PushInterval),
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, reg, reg),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engines *usecase.EngineHolder,
	httpServer *xhttp.Server,
	sweeper *usecase.RetentionSweeper,
	limiter *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaEventsHandler,
	dispatcher *mid.AlertDispatcher,
	pub repository.AlertPublisher,
	archiver *usecase.EventArchiver,
	archive repository.EventArchive,
	vc repository.ViewCache,
) *server.App {
	return server.New(cfg, l, server.Components{
		Engines:    engines,
		HTTP:       httpServer,
		Sweeper:    sweeper,
		Limiter:    limiter,
		Consumer:   consumer,
		Handler:    kh,
		Dispatcher: dispatcher,
		Publisher:  pub,
		Archiver:   archiver,
		Archive:    archive,
		ViewCache:  vc,
	})
}
