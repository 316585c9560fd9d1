// Package main provides the main entry point for the Susanoo messaging core
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatspire/susanoo/app/handlers"
	"github.com/chatspire/susanoo/app/router"
	"github.com/chatspire/susanoo/app/scheduler"
	"github.com/chatspire/susanoo/app/services"
	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/chatspire/susanoo/config"
	"github.com/chatspire/susanoo/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Susanoo application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeOutboundSender picks the outbound provider from configuration
func initializeOutboundSender(cfg *config.ProductionConfig) services.OutboundSender {
	switch cfg.OutboundProvider() {
	case "mock":
		return services.NewMockOutboundSender()
	default:
		return services.NewTwilioSender(&cfg.Twilio)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	mappingRepo := repository.NewBusinessSocialMediaRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	templateRepo := repository.NewMessageTemplateRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	campaignLogRepo := repository.NewCampaignLogRepository(db)

	// The tx runner probes the database once and falls back to sequential
	// writes on backends without transaction support.
	txRunner := repository.NewCapabilityTxRunner(db, log.Default(), 0)

	// Initialize services
	sender := initializeOutboundSender(cfg)
	answerClient := services.NewAnswerClient(&cfg.Answering)

	// Auto-reply worker
	dispatcher := businessflow.NewAutoReplyDispatcher(
		answerClient,
		sender,
		messageRepo,
		chatRepo,
		cfg.Answering.Timeout,
		0,
		log.Default(),
	)
	dispatcher.Start()
	stopFuncs = append(stopFuncs, dispatcher.Stop)

	// Campaign execution engine and recurring timer registry
	executor := scheduler.NewExecutor(
		campaignRepo,
		campaignLogRepo,
		messageRepo,
		chatRepo,
		mappingRepo,
		sender,
		cfg.Scheduler.SendDelay,
		log.Default(),
	)

	registry, err := scheduler.NewJobRegistry(executor, log.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job registry: %w", err)
	}
	registry.Start()
	stopFuncs = append(stopFuncs, func() {
		if err := registry.Shutdown(); err != nil {
			log.Printf("Job registry shutdown failed: %v", err)
		}
	})

	// Initialize flows
	webhookFlow := businessflow.NewWebhookFlow(
		leadRepo,
		mappingRepo,
		chatRepo,
		messageRepo,
		txRunner,
		rc,
		dispatcher,
		cfg.Webhook.StrictMode,
		log.Default(),
	)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		campaignLogRepo,
		templateRepo,
		leadRepo,
		chatRepo,
		mappingRepo,
		txRunner,
		executor,
		registry,
		log.Default(),
	)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(webhookFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, webhookHandler, campaignHandler)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewCampaignScheduler(campaignRepo, executor, cfg.Scheduler.Interval)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	application := &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
