package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cache"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cart"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/catalog"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/config"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/httpapi"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/messaging"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/order"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/promotion"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/memory"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/postgres"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/telemetry"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/wishlist"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.ServiceVersion)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(ctx) }()
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	var backend store.Backend
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		backend = memory.NewStore()
	default:
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
		backend = postgres.New(db)
	}

	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, cart views will not be cached until it recovers", "error", err)
		}
		cartCache = cache.NewRedisCache(client)
	}

	var publisher order.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are disabled")
	}

	if cfg.IdentityURL == "" {
		logger.Warn("IDENTITY_URL not set, authenticated requests will fail")
	}
	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	provider := identity.NewProvider(cfg.IdentityURL, cfg.IdentityAPIKey, httpClient)

	carts, err := cart.NewService(backend.Products(), backend.Carts(), backend.AppliedCoupons(), cartCache, logger)
	if err != nil {
		logger.Error("failed to create cart service", "error", err)
		os.Exit(1)
	}
	promotions, err := promotion.NewService(backend.Promotions(), backend.AppliedCoupons(), backend.Carts(), carts, logger)
	if err != nil {
		logger.Error("failed to create promotion service", "error", err)
		os.Exit(1)
	}
	orders, err := order.NewService(backend.Orders(), backend.Products(), carts, publisher, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Products:       catalog.NewProductService(backend.Products(), backend.Categories(), logger),
		Categories:     catalog.NewCategoryService(backend.Categories(), backend.Products(), logger),
		Carts:          carts,
		Promotions:     promotions,
		Orders:         orders,
		Wishlists:      wishlist.NewService(backend.Wishlists(), backend.Products(), logger),
		Profiles:       backend.Profiles(),
		Auth:           identity.NewAuthenticator(provider, backend.Profiles(), logger),
		Metrics:        metricsHandler,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("starting storefront api", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
