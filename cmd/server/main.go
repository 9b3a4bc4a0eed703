// Package main is the entry point for the wallet ledger service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"time"

	"paystream/internal/config"
	"paystream/internal/handlers"
	"paystream/internal/repositories"
	"paystream/internal/repositories/cache"
	"paystream/internal/services/ledger"
	"paystream/internal/services/withdrawal"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	// Initialize PostgreSQL
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Initialize Redis wallet cache
	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	walletCache := cache.NewWalletCache(redisClient,
		config.GetDurationEnv("WALLET_CACHE_TTL", 5*time.Minute))
	defer func() {
		if err := walletCache.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}()

	if err := walletCache.HealthCheck(context.Background()); err != nil {
		log.Printf("Redis not reachable: %v", err)
	}

	// Wire repositories and services
	repo := repositories.NewLedgerRepository(repositories.DB)
	ledgerSvc := ledger.NewService(repo, walletCache, ledger.Config{
		MaxConflictRetries: config.GetIntEnv("LEDGER_MAX_RETRIES", ledger.DefaultMaxConflictRetries),
	}, nil)
	withdrawalSvc := withdrawal.NewService(repo, ledgerSvc, walletCache)

	// Create Fiber app
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/wallet/withdrawals", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	handlers.SetupRoutes(app, ledgerSvc, withdrawalSvc)

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
