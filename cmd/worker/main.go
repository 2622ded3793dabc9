package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/config"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/messaging"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/postgres"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/telemetry"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	// The worker shares the API's database; an in-memory store would never
	// see the orders the events refer to.
	if cfg.StoreDriver != config.DriverPostgres {
		logger.Error("the worker requires STORE_DRIVER=postgres")
		os.Exit(1)
	}

	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var dedup worker.Deduper
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		dedup = worker.NewRedisDeduper(client, cfg.WorkerGroup)
	} else {
		logger.Warn("REDIS_ADDR not set, redelivered events will be handled again")
	}

	processor, err := worker.NewOrderProcessor(postgres.New(db).Orders(), dedup, logger)
	if err != nil {
		logger.Error("failed to create order processor", "error", err)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.OrderTopic, cfg.WorkerGroup)
	defer func() { _ = consumer.Close() }()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order worker", "brokers", cfg.KafkaBrokers, "topic", cfg.OrderTopic, "group", cfg.WorkerGroup)

	if err := consumer.Consume(ctx, processor.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
