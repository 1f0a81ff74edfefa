package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/securecookie"

	"github.com/KattyaCuevas/posts-service/internal/app/grpcapp"
	"github.com/KattyaCuevas/posts-service/internal/app/httpapp"
	"github.com/KattyaCuevas/posts-service/internal/config"
	cfgStorage "github.com/KattyaCuevas/posts-service/internal/config/storage"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
	eventworker "github.com/KattyaCuevas/posts-service/internal/service/event-worker"
	"github.com/KattyaCuevas/posts-service/internal/service/posts"
	"github.com/KattyaCuevas/posts-service/internal/service/posts/interfaces/repository"
	"github.com/KattyaCuevas/posts-service/internal/storage/memory"
	"github.com/KattyaCuevas/posts-service/internal/storage/postgres"
	httpserver "github.com/KattyaCuevas/posts-service/internal/transport/http-server"
	"github.com/KattyaCuevas/posts-service/internal/transport/kafka"
)

// Store is what the application needs from a storage backend
type Store interface {
	repository.Saver
	repository.Provider
	eventworker.PageProvider
	eventworker.Reserver
	eventworker.Deleter
	Ping(ctx context.Context) error
	Stop() error
}

type App struct {
	log           *slog.Logger
	DB            Store
	Posts         *posts.PostService
	HTTPApp       *httpapp.App
	GRPCApp       *grpcapp.App
	EventWorker   *eventworker.Worker
	EventProducer *kafka.Producer
}

// New wires all application components according to cfg. Panics if any of them can't be built
func New(
	log *slog.Logger,
	cfg *config.Config,
) *App {
	const op = "app.New"
	fail := func(err error) {
		panic(op + ": " + err.Error())
	}

	repo, err := newStore(cfg.Storage, cfg.Kafka.Enabled)
	if err != nil {
		fail(err)
	}

	postService := posts.New(log, repo, repo, cfg.HTTP.Timeout.Duration)

	if err = seed(context.Background(), log, postService, cfg.Storage.Seed); err != nil {
		fail(err)
	}

	authKey := []byte(cfg.CSRF.AuthKey)
	if len(authKey) == 0 {
		log.Warn("csrf auth-key is not set, generating random one")
		authKey = securecookie.GenerateRandomKey(32)
	}

	handler := httpserver.New(log, postService, cfg.HTTP.Timeout.Duration, cfg.CSRF, authKey)
	httpApp := httpapp.New(
		log,
		cfg.HTTP.Host,
		cfg.HTTP.Port,
		handler,
		cfg.HTTP.ReadTimeout.Duration,
		cfg.HTTP.WriteTimeout.Duration,
		cfg.HTTP.IdleTimeout.Duration,
	)

	a := &App{
		log:     log,
		DB:      repo,
		Posts:   postService,
		HTTPApp: httpApp,
	}

	if cfg.GRPC.Port != 0 {
		a.GRPCApp = grpcapp.New(log, cfg.GRPC.Port, cfg.GRPC.Timeout.Duration)
	}

	if cfg.Kafka.Enabled {
		cfgKafka := cfg.Kafka
		producer, err := kafka.NewProducer(
			context.Background(),
			log,
			cfgKafka.Addrs,
			cfgKafka.Topic,
			cfgKafka.Timeout,
			cfgKafka.Retries,
		)
		if err != nil {
			fail(err)
		}

		a.EventProducer = producer
		a.EventWorker = eventworker.New(
			log,
			cfg.EventWorker.PageSize,
			repo,
			repo,
			repo,
			producer,
			cfg.EventWorker.Interval.Duration,
			cfg.EventWorker.Timeout.Duration,
		)
	}

	return a
}

func newStore(cfg cfgStorage.Config, outbox bool) (Store, error) {
	switch cfg.Kind {
	case cfgStorage.KindPostgres:
		var opts []postgres.Option
		if outbox {
			opts = append(opts, postgres.WithOutbox())
		}
		s, err := postgres.New(
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Timeout,
			opts...,
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		var opts []memory.Option
		if outbox {
			opts = append(opts, memory.WithOutbox())
		}
		return memory.New(opts...), nil
	}
}

// seed creates configured posts if there are no posts yet
func seed(ctx context.Context, log *slog.Logger, svc *posts.PostService, seeds []cfgStorage.Seed) error {
	if len(seeds) == 0 {
		return nil
	}

	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("store is not empty, skipping seed")
		return nil
	}

	for _, s := range seeds {
		if _, err = svc.Create(ctx, s.Title, s.Body); err != nil {
			return err
		}
	}

	log.Info("store is seeded", slog.Int("count", len(seeds)))
	return nil
}

func (a *App) Start() {
	const op = "app.Start"
	log := a.log.With(slog.String("op", op))
	log.Info("starting application")

	if a.EventWorker != nil {
		a.EventWorker.Start(context.Background())
	}

	go a.HTTPApp.MustRun()

	if a.GRPCApp != nil {
		go a.GRPCApp.MustRun()

		serving := true
		if err := a.DB.Ping(context.Background()); err != nil {
			log.Error("storage is not reachable", sl.Err(err))
			serving = false
		}
		a.GRPCApp.SetServing(serving)
	}

	log.Info("application started")
}

// Stop stops the servers first, then the outbox pipeline and the storage
func (a *App) Stop() {
	const op = "app.Stop"
	log := a.log.With(slog.String("op", op))
	log.Info("stopping application")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.HTTPApp.Stop()
	}()
	if a.GRPCApp != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.GRPCApp.Stop()
		}()
	}
	wg.Wait()

	if a.EventWorker != nil {
		a.EventWorker.Stop()
	}
	if a.EventProducer != nil {
		a.EventProducer.Stop()
	}

	if err := a.DB.Stop(); err != nil {
		log.Error("failed to stop storage", sl.Err(err))
	}

	log.Info("application is stopped")
}
