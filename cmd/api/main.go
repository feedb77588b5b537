package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/reachmap/reachmap_core/internal/api"
	"github.com/reachmap/reachmap_core/internal/cache"
	"github.com/reachmap/reachmap_core/internal/db"
	"github.com/reachmap/reachmap_core/internal/middleware"
	"github.com/reachmap/reachmap_core/internal/spatial"
	"github.com/reachmap/reachmap_core/internal/timetable"
)

func main() {
	log.Println("Starting ReachMap API server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	// Load the timetable for the configured service date into memory
	serviceDate := getEnv("SERVICE_DATE", time.Now().Format("20060102"))
	tt := timetable.NewIndex(serviceDate)
	if err := tt.LoadFromDB(context.Background(), pool); err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	log.Printf("✓ Timetable loaded for service date %s", serviceDate)

	// Build the spatial index over all stops
	sp := spatial.NewIndex(tt.Stops())
	log.Println("✓ Spatial index built")

	server := api.NewServer(tt, sp)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ReachMap API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RateLimitMiddleware(rdb, middleware.DefaultRateLimit))

	// Routes
	app.Get("/health", server.Health)
	app.Get("/stats", server.Stats)
	app.Get("/v1/reachability", server.Reachability)
	app.Get("/v1/stops/nearby", server.StopsNearby)
	app.Get("/v1/stops/:id/departures", server.StopDepartures)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	// Get port from environment
	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Reachability: http://localhost%s/v1/reachability?stop=STOP_ID&start=HH:MM:SS", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
