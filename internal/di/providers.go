package di

import (
	"context"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/internal/handler/api"
	internalrepo "ChartScan/internal/repository"
	"ChartScan/internal/service/ratelimit"
	"ChartScan/internal/usecase"
	"ChartScan/pkg/cache"
	pkgch "ChartScan/pkg/clickhouse"
	"ChartScan/pkg/config"
	xhttp "ChartScan/pkg/http"
	pkgkafka "ChartScan/pkg/kafka"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/metrics"
	"ChartScan/pkg/postgres"
	"ChartScan/pkg/queue"
	"ChartScan/pkg/server"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Optional infrastructure providers return nil when the config leaves the
// backend off. Providers of interfaces never return typed nils.

// ProvideKafkaProducer creates the shared producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		Linger:       cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
		KeyOrdered:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the process logger and, when log.collect is set,
// attaches the collector that ships aggregated warn/error lines to kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log = log.With(logger.String("env", cfg.Environment))
	if cfg.Log.Collect && producer != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        cfg.Kafka.Topics.Logs,
			Publisher:    producer,
		})
	}
	return log, nil
}

func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects when bars or backtest records live in
// ClickHouse, and creates the tables those paths need.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	barsInCH := cfg.BarStore.Type == "clickhouse"
	sinkInCH := cfg.Backtest.RecordSink == "clickhouse"
	if !barsInCH && !sinkInCH {
		return nil, nil
	}
	var schema []string
	if barsInCH {
		schema = append(schema, internalrepo.BarSchema(cfg.ClickHouse.Database)...)
	}
	if sinkInCH {
		schema = append(schema, internalrepo.BacktestSchema(cfg.ClickHouse.Database)...)
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithSchema(schema...),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePostgresClient connects and migrates when signals live in Postgres.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	if cfg.SignalStore.Type != "postgres" {
		return nil, nil
	}
	client, err := postgres.NewClient(
		postgres.WithHost(cfg.Postgres.Host, cfg.Postgres.Port),
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
		postgres.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLife),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideRedisClient is shared by the cache, the scan lock and the job queue.
// Nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := cache.NewRedisClient(context.Background(), cache.RedisConfig{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return rdb, nil
}

// ProvideCache layers process memory over Redis, or uses memory alone.
func ProvideCache(cfg *config.Config, rdb *redis.Client) cache.Service {
	if rdb == nil {
		return cache.NewMemoryCache(cache.WithMaxEntries(5000), cache.WithSweepInterval(time.Minute))
	}
	return cache.NewLayeredCache(
		cache.NewRedisCache(rdb, cfg.Redis.KeyPrefix),
		cache.WithL1Entries(cfg.Redis.L1Entries),
		cache.WithL1TTL(cfg.Redis.L1TTL),
	)
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.EventPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Signals, cfg.Kafka.Topics.Outcomes)
}

// ProvideBarStore picks the configured source and puts the cache in front of it.
func ProvideBarStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, log *logger.Logger) drepo.BarStore {
	var store drepo.BarStore
	switch cfg.BarStore.Type {
	case "csv":
		store = internalrepo.NewCSVBarStore(cfg.BarStore.CSVDir)
	default:
		store = internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, log)
	}
	if cfg.BarStore.CacheTTL <= 0 {
		return store
	}
	return internalrepo.NewCachedBarStore(store, c, cfg.BarStore.CacheTTL, log)
}

func ProvideSignalStore(pg *postgres.Client, log *logger.Logger) (drepo.SignalStore, error) {
	if pg == nil {
		return internalrepo.NewMemorySignalStore(), nil
	}
	store := internalrepo.NewPGSignalStore(pg.DB(), log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("signal store migrate: %w", err)
	}
	return store, nil
}

func ProvideReportStore(cfg *config.Config, c cache.Service) drepo.ReportStore {
	return internalrepo.NewCacheReportStore(c, cfg.Backtest.ReportTTL)
}

func ProvideRecordSink(cfg *config.Config, ch *pkgch.Client) drepo.RecordSink {
	if cfg.Backtest.RecordSink != "clickhouse" || ch == nil {
		return nil
	}
	return internalrepo.NewCHBacktestSink(ch, cfg.ClickHouse.Database)
}

func horizon(cfg *config.Config) models.Horizon {
	return models.Horizon{Days: cfg.Lifecycle.HorizonDays, Unit: models.HorizonUnit(cfg.Lifecycle.HorizonUnit)}
}

func ProvideScanner(
	cfg *config.Config,
	bars drepo.BarStore,
	signals drepo.SignalStore,
	events drepo.EventPublisher,
	c cache.Service,
	m *metrics.Recorder,
	log *logger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(bars, signals, events, c, m, log, usecase.ScannerConfig{
		LookbackBars:     cfg.Scanner.LookbackBars,
		MinBars:          cfg.Scanner.MinBars,
		RSICeiling:       decimal.NewFromFloat(cfg.Scanner.RSICeiling),
		RunTimeout:       cfg.Scanner.RunTimeout,
		Workers:          cfg.Scanner.Workers,
		MaxStoreFailures: cfg.Scanner.MaxStoreFailures,
		LockTTL:          cfg.Scanner.LockTTL,
	})
}

func ProvideLifecycle(
	cfg *config.Config,
	bars drepo.BarStore,
	signals drepo.SignalStore,
	events drepo.EventPublisher,
	m *metrics.Recorder,
	log *logger.Logger,
) *usecase.LifecycleEvaluator {
	return usecase.NewLifecycleEvaluator(bars, signals, events, m, log, horizon(cfg))
}

// ProvideStats hooks cache invalidation onto lifecycle passes that close signals.
func ProvideStats(cfg *config.Config, signals drepo.SignalStore, c cache.Service, lifecycle *usecase.LifecycleEvaluator, log *logger.Logger) *usecase.StatsService {
	stats := usecase.NewStatsService(signals, c, cfg.Stats.CacheTTL, log)
	lifecycle.OnClosed(stats.Invalidate)
	return stats
}

func ProvideBacktester(
	cfg *config.Config,
	bars drepo.BarStore,
	sink drepo.RecordSink,
	reports drepo.ReportStore,
	m *metrics.Recorder,
	log *logger.Logger,
) *usecase.Backtester {
	return usecase.NewBacktester(bars, sink, reports, m, log, usecase.BacktestConfig{
		LookbackBars:  cfg.Scanner.LookbackBars,
		MinBars:       cfg.Scanner.MinBars,
		RSICeiling:    decimal.NewFromFloat(cfg.Scanner.RSICeiling),
		Horizon:       horizon(cfg),
		ExpiredPolicy: models.ExpiredPolicy(cfg.Backtest.ExpiredPolicy),
		StrideDays:    cfg.Backtest.StrideDays,
		Workers:       cfg.Backtest.Workers,
	})
}

func ProvideBacktestJob(cfg *config.Config, b *usecase.Backtester, log *logger.Logger) *usecase.BacktestJob {
	return usecase.NewBacktestJob(b, cfg.Universe.Tickers, log)
}

// ProvideBacktestQueue runs queued backtests on Redis; nil without Redis, in
// which case the API runs them inline.
func ProvideBacktestQueue(cfg *config.Config, rdb *redis.Client, job *usecase.BacktestJob, log *logger.Logger) *queue.RedisQueue {
	if rdb == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, rdb, queue.QueueConfig{
		Workers:    cfg.Backtest.QueueWorkers,
		RetryLimit: 2,
		RetryDelay: 30 * time.Second,
		KeyPrefix:  "chartscan:backtest",
	})
	q.RegisterJob(job)
	return q
}

func ProvideCommandHandler(cfg *config.Config, scanner *usecase.Scanner, lifecycle *usecase.LifecycleEvaluator, log *logger.Logger) *usecase.CommandHandler {
	return usecase.NewCommandHandler(cfg.Kafka.Topics.Commands, scanner, lifecycle, cfg.Universe.Tickers, log)
}

// ProvideCommandConsumer subscribes the command handler; nil when kafka is disabled.
func ProvideCommandConsumer(cfg *config.Config, handler *usecase.CommandHandler, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Topics.DLQ),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.LoggingHook{Log: log})
	consumer.RegisterHandler(handler)
	return consumer, nil
}

func ProvideAPIHandler(
	cfg *config.Config,
	scanner *usecase.Scanner,
	lifecycle *usecase.LifecycleEvaluator,
	signals drepo.SignalStore,
	stats *usecase.StatsService,
	backtester *usecase.Backtester,
	job *usecase.BacktestJob,
	q *queue.RedisQueue,
	log *logger.Logger,
) *api.ScanHandler {
	deps := api.Deps{
		Scanner:    scanner,
		Lifecycle:  lifecycle,
		Signals:    signals,
		Stats:      stats,
		Backtester: backtester,
		Universe:   cfg.Universe.Tickers,
	}
	if q != nil {
		deps.Jobs = job
		deps.Queue = q
	}
	return api.NewScanHandler(log, deps)
}

func ProvideHTTPServer(cfg *config.Config, handler *api.ScanHandler, log *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, nil, nil))
	} else {
		opts = append(opts, xhttp.WithMetrics("", nil, nil))
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.PerMinute(cfg.Server.RateLimit)))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp registers services in start order; they stop in reverse.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	events drepo.EventPublisher,
	ch *pkgch.Client,
	pg *postgres.Client,
	rdb *redis.Client,
) *server.App {
	app := server.New(log, cfg.Server.ShutdownTimeout)
	if q != nil {
		app.Add("backtest-queue", q)
	}
	if consumer != nil {
		app.Add("command-consumer", consumer)
	}
	app.Add("http", srv)

	// closers run in reverse: the collector flushes before the producer closes
	app.OnShutdown("events", events.Close)
	app.OnShutdown("log-collector", func() error { log.RemoveCollector(); return nil })
	if ch != nil {
		app.OnShutdown("clickhouse", ch.Close)
	}
	if pg != nil {
		app.OnShutdown("postgres", pg.Close)
	}
	if rdb != nil {
		app.OnShutdown("redis", rdb.Close)
	}
	return app
}
