package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"freshkeep/internal/events"
	httptransport "freshkeep/internal/http"
	itemStore "freshkeep/internal/inventory/store/item"
	userStore "freshkeep/internal/inventory/store/user"
	"freshkeep/internal/notification/delivery"
	notifHandler "freshkeep/internal/notification/handler"
	notifMetrics "freshkeep/internal/notification/metrics"
	notifService "freshkeep/internal/notification/service"
	"freshkeep/internal/notification/store/ledger"
	"freshkeep/internal/platform/config"
	"freshkeep/internal/platform/httpserver"
	"freshkeep/internal/platform/kafka/consumer"
	"freshkeep/internal/platform/logger"
	"freshkeep/internal/platform/postgres"
	platformredis "freshkeep/internal/platform/redis"
	prefHandler "freshkeep/internal/preference/handler"
	prefService "freshkeep/internal/preference/service"
	prefStore "freshkeep/internal/preference/store/preference"
	"freshkeep/internal/scheduler"
	"freshkeep/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	items := itemStore.NewPostgres(db)
	users := userStore.NewPostgres(db)
	prefs := prefService.New(prefStore.NewPostgres(db), prefService.WithLogger(log))
	store := ledger.NewPostgres(db)

	dispatcher := delivery.New(
		[]delivery.Channel{delivery.NewEmailChannel(cfg.SMTP)},
		delivery.WithLogger(log),
		delivery.WithRateLimiter(delivery.NewRateLimiter(30, time.Hour)),
		delivery.WithTimeout(cfg.SMTP.Timeout),
	)

	engine := notifService.New(items, prefs, store, dispatcher, users,
		notifService.WithLogger(log),
		notifService.WithMetrics(notifMetrics.New()),
		notifService.WithEmailOnAdded(cfg.EmailOnAdded),
	)

	checks := map[string]httptransport.HealthChecker{
		"postgres": db.PingContext,
	}

	sweepOpts := []scheduler.Option{scheduler.WithLogger(log)}
	if redisClient != nil {
		sweepOpts = append(sweepOpts, scheduler.WithLock(scheduler.NewRedisLock(redisClient)))
		checks["redis"] = redisClient.Health
	}
	sweeper := scheduler.New(engine, cfg.Scheduler.Interval, cfg.Scheduler.LockTTL, sweepOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger: log,
		Handlers: []httptransport.Registrar{
			notifHandler.New(engine, log),
			prefHandler.New(prefs, log),
		},
		Checks: checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		err := sweeper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if len(cfg.Kafka.Brokers) > 0 {
		eventRouter := events.NewRouter(log)
		eventRouter.Register(cfg.Kafka.CreatedTopic, events.NewItemCreatedHandler(engine))
		eventRouter.Register(cfg.Kafka.DeletedTopic, events.NewItemDeletedHandler(engine))

		if err := consumer.EnsureTopics(ctx, cfg.Kafka.Brokers, eventRouter.Topics()...); err != nil {
			return err
		}
		kafkaConsumer, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			Group:   cfg.Kafka.Group,
			Topics:  eventRouter.Topics(),
		}, eventRouter, log)
		if err != nil {
			return err
		}
		group.Go(func() error {
			log.Info("starting inventory event consumer",
				"brokers", cfg.Kafka.Brokers,
				"topics", eventRouter.Topics(),
			)
			err := kafkaConsumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return group.Wait()
}
