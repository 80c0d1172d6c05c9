package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/config"
	"github.com/kendall-kelly/foodcourt-api/controllers"
	"github.com/kendall-kelly/foodcourt-api/middleware"
	"github.com/kendall-kelly/foodcourt-api/services"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	helper := log.NewHelper(log.With(logger, "module", "main"))
	helper.Info("Starting Food Court API server...")

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		helper.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		helper.Fatalf("Failed to migrate database: %v", err)
	}
	helper.Info("Database migration completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup, err := setupServices(ctx, cfg, db, logger)
	if err != nil {
		helper.Fatalf("Failed to initialize services: %v", err)
	}
	defer cleanup()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		helper.Infof("Server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		helper.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		helper.Errorf("Server stopped with error: %v", err)
		return
	}
	helper.Info("Server stopped")
}

// newLogger builds the process logger, filtered by LOG_LEVEL
func newLogger(cfg *config.Config) log.Logger {
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service", "foodcourt-api",
		"env", cfg.GoEnv,
	)
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(cfg.LogLevel)))
}

// setupServices wires the service singletons used by the controllers. Redis
// and RabbitMQ are optional; without them the order lock is process local and
// events are dropped. The returned func releases the connections.
func setupServices(ctx context.Context, cfg *config.Config, db *gorm.DB, logger log.Logger) (func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "main"))
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var locker services.OrderLocker = services.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return cleanup, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return cleanup, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		locker = services.NewRedisLocker(client, logger)
		helper.Info("Using redis order locks")
	}

	var events services.EventPublisher = services.NoopPublisher{}
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return cleanup, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		publisher, err := services.NewAMQPPublisher(conn, logger)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, func() { _ = publisher.Close() })
		events = publisher
		helper.Info("Publishing order events to rabbitmq")
	}

	archive, err := services.NewPayloadArchive(ctx, cfg)
	if err != nil {
		return cleanup, err
	}

	services.InitOrderService(db, locker, events, services.OrderServiceOptions{
		StrictTransitions: cfg.StrictStatusTransitions,
		CatalogPrices:     cfg.UsesCatalogPrices(),
	}, logger)
	services.InitPaymentService(services.NewStripeGateway(cfg.StripeSecretKey), cfg.DefaultCurrency, cfg.GatewayTimeout, logger)
	services.InitPaymentReconciler(db, services.NewStripeWebhookVerifier(cfg.StripeWebhookSecret), archive, events, cfg.WebhookTimeout, logger)
	services.InitIdentityProvider(cfg)

	return cleanup, nil
}

// setupRouter registers every route of the API
func setupRouter(cfg *config.Config, logger log.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	auth := middleware.EnsureValidToken(cfg, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Profile provisioning works before a local user exists
		v1.POST("/users", auth, controllers.CreateUser)
		v1.GET("/users/me", auth, middleware.LoadUser(), controllers.GetMyProfile)

		orders := v1.Group("/orders", auth, middleware.LoadUser())
		{
			orders.POST("", controllers.CreateOrder)
			orders.GET("", controllers.ListOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.PATCH("/:id/update-status", controllers.UpdateOrderStatus)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/create-intent", auth, middleware.LoadUser(), controllers.CreatePaymentIntent)

			// Called by the payment gateway; authenticated by signature
			payments.POST("/webhook", controllers.HandlePaymentWebhook)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Food Court API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		databaseError(c, "DATABASE_ERROR", "Database is not configured")
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		databaseError(c, "DATABASE_ERROR", "Failed to get database instance")
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		databaseError(c, "DATABASE_CONNECTION_ERROR", "Database connection failed")
		return
	}

	tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		databaseError(c, "DATABASE_QUERY_ERROR", "Failed to query tables")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Database connected",
		"tables":  tables,
	})
}

func databaseError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
