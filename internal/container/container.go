package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/docshelf/docshelf/internal/admission"
	"github.com/docshelf/docshelf/internal/documents"
	"github.com/docshelf/docshelf/internal/files"
	"github.com/docshelf/docshelf/internal/handlers"
	"github.com/docshelf/docshelf/internal/health"
	"github.com/docshelf/docshelf/internal/messaging"
	"github.com/docshelf/docshelf/internal/middleware"
	"github.com/docshelf/docshelf/internal/notify"
	"github.com/docshelf/docshelf/internal/ratelimit"
	"github.com/docshelf/docshelf/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// Options configures both binaries. humacli populates it from flags and
// environment.
type Options struct {
	Port        int    `default:"8888"              help:"Port to listen on"                                  short:"p"`
	RedisAddr   string `default:"localhost:6379"    help:"Redis server address"                               short:"r"`
	PostgresDSN string `default:""                  help:"Postgres DSN; empty keeps documents in memory"`
	StorageDir  string `default:"./data/documents"  help:"Directory for uploaded payloads"`

	CounterBackend string `default:"memory" enum:"memory,redis" help:"Admission counter backend"`

	UploadMaxConcurrent int64 `default:"2"  help:"Concurrent uploads per principal on the upload route"`
	GlobalMaxConcurrent int64 `default:"5"  help:"Concurrent uploads per principal across all routes"`
	SlotTTLSeconds      int   `default:"60" help:"Seconds before a leaked admission slot self-expires"`

	RateLimitRPS   float64 `default:"10" help:"Sustained requests per second per principal"`
	RateLimitBurst int     `default:"20" help:"Request burst per principal"`

	LogFormat   string `default:"console"  enum:"console,json" help:"Log output format"`
	ProjectName string `default:"DocShelf" help:"Name used in notifications"`

	SMTPAddr     string `default:"" help:"SMTP host:port; empty logs notifications instead"`
	SMTPFrom     string `default:"" help:"Notification sender address"`
	SMTPUser     string `default:"" help:"SMTP username"`
	SMTPPassword string `default:"" help:"SMTP password"`
}

// UploadRoute is the gated route path; the slots endpoint reports on it.
const UploadRoute = "/documents"

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: options.RedisAddr}), nil
	})
}

// PostgresPackage provides the pgx pool. Invoking it without a configured
// DSN is an error; packages that can fall back to memory check the DSN
// before invoking.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)
		if options.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn not configured")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return pgxpool.New(ctx, options.PostgresDSN)
	})
}

// RepositoryPackage provides document persistence and payload storage.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (documents.Repository, error) {
		options := do.MustInvoke[*Options](i)

		if options.PostgresDSN != "" {
			pool := do.MustInvoke[*pgxpool.Pool](i)

			return store.NewDocumentPostgresStore(pool), nil
		}

		return store.NewDocumentMemoryStore(), nil
	})

	do.Provide(injector, func(i *do.Injector) (files.Store, error) {
		options := do.MustInvoke[*Options](i)

		generator, err := nanoid.Standard(21)
		if err != nil {
			return nil, err
		}

		return files.NewDiskStore(options.StorageDir, generator)
	})
}

// AdmissionPackage provides the counter store and the admission gate.
func AdmissionPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (admission.CounterStore, error) {
		options := do.MustInvoke[*Options](i)

		if options.CounterBackend == "redis" {
			client := do.MustInvoke[*redis.Client](i)

			return store.NewCounterRedisStore(client), nil
		}

		return store.NewCounterMemoryStore(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*admission.Gate, error) {
		options := do.MustInvoke[*Options](i)
		counters := do.MustInvoke[admission.CounterStore](i)
		logger := do.MustInvoke[*zap.Logger](i)

		gate := admission.NewGate(
			counters,
			"doc_upload_slots",
			options.GlobalMaxConcurrent,
			time.Duration(options.SlotTTLSeconds)*time.Second,
			logger,
		)

		return gate, nil
	})
}

// RateLimitPackage provides per-principal request-rate limiting.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)

		limiter := ratelimit.NewTokenBucketLimiter(options.RateLimitRPS, options.RateLimitBurst)
		limiter.StartJanitor(context.Background(), 2*time.Minute)

		return limiter, nil
	})
}

// PublisherGroupPackage provides the Watermill publisher over Redis streams
// and the typed publish functions derived from it.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client},
			watermill.NopLogger{},
		)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[notify.DocumentUploadedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[notify.DocumentUploadedEvent](group.Publisher(), notify.TopicDocumentUploaded), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[notify.DocumentDeletedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[notify.DocumentDeletedEvent](group.Publisher(), notify.TopicDocumentDeleted), nil
	})
}

// ConsumerGroupPackage provides the notification worker: a Redis streams
// subscriber feeding the notifier's handlers.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (notify.Mailer, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.SMTPAddr == "" {
			return notify.NewLogMailer(logger), nil
		}

		return notify.NewSMTPMailer(notify.SMTPConfig{
			Addr:     options.SMTPAddr,
			From:     options.SMTPFrom,
			FromName: options.ProjectName,
			Username: options.SMTPUser,
			Password: options.SMTPPassword,
		}), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		options := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)
		mailer := do.MustInvoke[notify.Mailer](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client,
				ConsumerGroup: "docshelf-notify",
			},
			watermill.NopLogger{},
		)
		if err != nil {
			return nil, err
		}

		notifier := notify.NewNotifier(mailer, options.ProjectName, logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, notify.TopicDocumentUploaded, notifier.HandleUploaded, logger))
		group.Add(messaging.NewConsumer(subscriber, notify.TopicDocumentDeleted, notifier.HandleDeleted, logger))

		return group, nil
	})
}

// HTTPPackage provides the router and the fully wired API.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		gate := do.MustInvoke[*admission.Gate](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)
		repo := do.MustInvoke[documents.Repository](i)
		fileStore := do.MustInvoke[files.Store](i)
		publishUploaded := do.MustInvoke[messaging.Publish[notify.DocumentUploadedEvent]](i)
		publishDeleted := do.MustInvoke[messaging.Publish[notify.DocumentDeletedEvent]](i)

		api := humachi.New(router, huma.DefaultConfig(options.ProjectName, "1.0.0"))

		// Meta first: both limiters key on the resolved principal.
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, limiter),
			middleware.Admission(api, gate, logger),
		)

		uploadCfg := admission.EndpointConfig{MaxConcurrent: options.UploadMaxConcurrent}

		docHandler := handlers.NewDocumentHandler(repo, fileStore, publishUploaded, publishDeleted, logger)
		slotsHandler := handlers.NewSlotsHandler(gate, UploadRoute, uploadCfg)

		handlers.RegisterRoutes(api, docHandler, slotsHandler, uploadCfg)
		health.RegisterRoutes(api, healthHandler(i, options))

		return api, nil
	})
}

func healthHandler(i *do.Injector, options *Options) *health.Handler {
	var redisChecker, pgChecker health.Checker

	if options.CounterBackend == "redis" || options.RedisAddr != "" {
		redisChecker = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
	}

	if options.PostgresDSN != "" {
		pgChecker = health.NewPostgresChecker(do.MustInvoke[*pgxpool.Pool](i))
	}

	return health.NewHandler(redisChecker, pgChecker)
}
