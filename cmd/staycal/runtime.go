package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"staycal/internal/app/middleware"
	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/registry"
	"staycal/internal/app/uow"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/infra/broker/kafka"
	"staycal/internal/infra/cache"
	"staycal/internal/infra/config"
	"staycal/internal/infra/db/mongo"
	"staycal/internal/infra/db/postgres"
	"staycal/internal/infra/db/scylla"
	"staycal/internal/infra/export"
	"staycal/internal/infra/inbox"
	"staycal/internal/infra/obs"
	infraoutbox "staycal/internal/infra/outbox"
	"staycal/internal/infra/storage/memory"
	"staycal/internal/infra/storage/s3"
)

// runtime holds everything one process needs, built from config.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *obs.Metrics
	reg     *prometheus.Registry
	// group names the consumer group and inbox of this process.
	group string

	buses    registry.Buses
	listings domainlistings.Repository
	calendar *cache.CalendarStore

	// memOutbox is set for drivers without a durable outbox.
	memOutbox *memory.Outbox
	worker    *infraoutbox.Worker
	consumer  *kafka.Consumer

	ready   []func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

type storeSet struct {
	listings    domainlistings.Repository
	calendar    domainavailability.Store
	factory     func(cal domainavailability.Store) uow.UoWFactory
	idempotency middleware.IdempotencyStore
	claims      infraoutbox.ClaimStore
	outbox      appoutbox.Outbox
	inbox       kafka.Inbox
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, obs.NewLogger("dev"), err
	}
	return cfg, obs.NewLogger(cfg.Env), nil
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	rt := &runtime{cfg: cfg, logger: logger, reg: prometheus.NewRegistry(), group: cfg.KafkaGroupID + "-" + instanceID()}
	rt.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics = obs.NewMetrics(rt.reg)

	stores, err := rt.openStores(ctx)
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}
	if err := rt.wireCache(ctx, stores); err != nil {
		rt.close(context.Background())
		return nil, err
	}
	producer, err := rt.openProducer()
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}

	envelope := infraoutbox.Envelope{TopicPrefix: cfg.KafkaTopicPrefix, Source: "app://staycal"}
	outbox := stores.outbox
	if stores.claims != nil {
		sink := infraoutbox.Producer(cache.LocalSink{Store: rt.calendar})
		if producer != nil {
			sink = producer
		}
		rt.worker = &infraoutbox.Worker{
			Store:    stores.claims,
			Producer: sink,
			Envelope: envelope,
			Interval: cfg.OutboxPollInterval,
			Backoff:  cfg.RetryBackoff,
			Logger:   logger,
			Observer: rt.metrics,
		}
	} else {
		publishers := []appoutbox.Publisher{rt.calendar.Publisher()}
		if producer != nil {
			publishers = append(publishers, infraoutbox.DirectPublisher{Envelope: envelope, Producer: producer, Observer: rt.metrics})
		}
		rt.memOutbox = memory.NewOutbox(appoutbox.Fanout(publishers...))
		outbox = rt.memOutbox
	}
	if err := rt.openConsumer(stores.inbox); err != nil {
		rt.close(context.Background())
		return nil, err
	}

	var uploader *s3.Client
	if cfg.S3Enabled() {
		uploader, err = s3.NewClient(s3.Options{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			rt.close(context.Background())
			return nil, err
		}
	}

	deps := registry.Deps{
		UoWFactory:  stores.factoryFor(rt.calendar, rt.memOutbox),
		Outbox:      outbox,
		Idempotency: stores.idempotency,
		Renderer:    export.XLSX{},
		Logger:      logger,
		Recorder:    rt.metrics,
		Observer:    rt.metrics,
	}
	if uploader != nil {
		deps.Uploader = uploader
	}
	rt.buses = registry.Build(deps)
	rt.listings = stores.listings
	return rt, nil
}

func (s storeSet) factoryFor(cal domainavailability.Store, box *memory.Outbox) uow.UoWFactory {
	if s.factory != nil {
		return s.factory(cal)
	}
	return memory.Factory{ListingsRepo: s.listings, CalendarStore: cal, Outbox: box}
}

func (rt *runtime) openStores(ctx context.Context) (storeSet, error) {
	cfg := rt.cfg
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storeSet{}, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.ready = append(rt.ready, client.Ping)
		mongo.IdempotencyTTL = cfg.IdempotencyTTL
		box := infraoutbox.NewStore(client.DB)
		set := storeSet{
			listings:    mongo.NewListingRepository(client.DB),
			calendar:    mongo.NewCalendarStore(client.DB),
			idempotency: mongo.NewIdempotencyStore(client.DB),
			claims:      box,
			outbox:      box,
			inbox:       inbox.NewStore(client.DB, rt.group),
		}
		set.factory = func(cal domainavailability.Store) uow.UoWFactory {
			return mongo.Factory{DB: client.DB, ListingsRepo: set.listings, CalendarStore: cal, Outbox: box}
		}
		return set, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, rt.logger)
		if err != nil {
			return storeSet{}, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { pool.Close(); return nil })
		rt.ready = append(rt.ready, pool.Ping)
		box := postgres.NewOutboxStore(pool)
		set := storeSet{
			listings:    postgres.NewListingRepository(pool),
			calendar:    postgres.NewCalendarStore(pool),
			idempotency: postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL),
			claims:      box,
			outbox:      box,
		}
		set.factory = func(cal domainavailability.Store) uow.UoWFactory {
			return postgres.Factory{Pool: pool, ListingsRepo: set.listings, CalendarStore: cal, Outbox: box}
		}
		return set, nil

	case config.DriverScylla:
		session, err := scylla.NewSession(ctx, cfg, rt.logger)
		if err != nil {
			return storeSet{}, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { session.Close(); return nil })
		rt.ready = append(rt.ready, func(context.Context) error {
			if session.Closed() {
				return errors.New("scylla session closed")
			}
			return nil
		})
		return storeSet{
			listings:    scylla.NewListingRepository(session),
			calendar:    scylla.NewCalendarStore(session),
			idempotency: memory.NewIdempotencyStore(),
		}, nil

	default:
		return storeSet{
			listings:    memory.NewListingRepository(),
			calendar:    memory.NewCalendarStore(),
			idempotency: memory.NewIdempotencyStore(),
		}, nil
	}
}

func (rt *runtime) wireCache(ctx context.Context, stores storeSet) error {
	var backend cache.Backend = cache.NewMemoryBackend(rt.cfg.CalendarCacheMaxEntries)
	if rt.cfg.RedisEnabled() {
		client, err := cache.NewRedisClient(ctx, rt.cfg.RedisURL)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		rt.ready = append(rt.ready, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		backend = cache.NewRedisBackend(client)
	}
	rt.calendar = cache.NewCalendarStore(stores.calendar, backend, rt.cfg.CalendarCacheTTL,
		cache.WithObserver(rt.metrics), cache.WithLogger(rt.logger))
	return nil
}

func (rt *runtime) openProducer() (*kafka.Producer, error) {
	if !rt.cfg.KafkaEnabled() {
		return nil, nil
	}
	producer, err := kafka.NewProducer(rt.cfg.KafkaBrokers, kafka.NewConfig("staycal"))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return producer.Close() })
	return producer, nil
}

// openConsumer joins a group unique to this process so every replica sees
// every calendar event.
func (rt *runtime) openConsumer(box kafka.Inbox) error {
	if !rt.cfg.KafkaEnabled() {
		return nil
	}
	if box == nil {
		box = inbox.NewMemory(0)
	}
	handler := kafka.CalendarEvents{Inbox: box, Invalidator: rt.calendar, Logger: rt.logger}
	consumer, err := kafka.NewConsumer(rt.cfg.KafkaBrokers, rt.group, nil, handler, rt.logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return consumer.Close() })
	rt.consumer = consumer
	return nil
}

func (rt *runtime) readiness(ctx context.Context) error {
	for _, check := range rt.ready {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Warn("close failed", "error", err)
		}
	}
	rt.closers = nil
}

func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()[:8]
}
