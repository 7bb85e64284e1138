package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/deshikart/deshikart/internal/cache"
	"github.com/deshikart/deshikart/internal/checkout"
	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/domain/payment"
	"github.com/deshikart/deshikart/internal/events"
	"github.com/deshikart/deshikart/internal/handler"
	"github.com/deshikart/deshikart/internal/storage/mongocart"
	"github.com/deshikart/deshikart/internal/storage/postgres"
	"github.com/deshikart/deshikart/pkg/health"
	"github.com/deshikart/deshikart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// MongoDB for cart documents.
	mongoDB, err := mongocart.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		return errors.Wrap(err, "connect mongodb")
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(context.Background())
	}()

	cartStore := mongocart.NewStore(mongoDB)
	if err := cartStore.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "create cart indexes")
	}

	// Redis cart cache, optional.
	var cartCache cart.Cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		cartCache = cache.NewCartCache(redisClient)
	}

	// Kafka order events, optional.
	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("mongodb", 5*time.Second, func(ctx context.Context) error {
		return mongoDB.Client().Ping(ctx, nil)
	})
	if redisClient != nil {
		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	stockLedger := postgres.NewStockLedger(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	cartService := cart.NewService(cartStore, cartCache, productRepo, stockLedger, couponRepo)
	checkoutService := checkout.NewService(cartService, orderRepo, stockLedger, couponRepo, publisher)
	orderService := order.NewService(orderRepo, stockLedger, publisher, cfg.ReturnWindow())
	paymentService := payment.NewService(orderRepo, payment.NewRegistry(), publisher)

	// HTTP handlers.
	authn := handler.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(cartService, checkoutService, orderService, paymentService, authn)

	api := otelhttp.NewHandler(h.Routes(), "deshikart-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", api))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
