package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/rutabus/fleet-service/internal/auth"
	"github.com/rutabus/fleet-service/internal/config"
	"github.com/rutabus/fleet-service/internal/handlers"
	"github.com/rutabus/fleet-service/internal/liveness"
	"github.com/rutabus/fleet-service/internal/repository"
	"github.com/rutabus/fleet-service/internal/service"
	"github.com/rutabus/fleet-service/internal/ws"
)

func main() {
	// Load configuration from environment
	cfg := config.LoadConfig()
	log.Printf("Configuration loaded:")
	log.Printf("  MongoDB URI: %s", cfg.MongoDBURI)
	log.Printf("  MongoDB Database: %s", cfg.MongoDBDatabase)
	log.Printf("  Server Port: %s", cfg.ServerPort)
	log.Printf("  WS Port: %s", cfg.WSPort)
	log.Printf("  Recency Window: %s", cfg.RecencyWindow)
	log.Printf("  Liveness Check Interval: %s", cfg.LivenessCheckInterval)

	// Initialize database manager
	dbManager := config.NewDatabaseManager(cfg)

	log.Println("Connecting to MongoDB...")
	if err := dbManager.Initialize(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("Successfully connected to MongoDB")

	// Initialize dependencies
	mongoDB := dbManager.GetMongoDB()
	hub := ws.NewHub()

	busRepo := repository.NewMongoBusRepository(mongoDB)
	profileRepo := repository.NewMongoProfileRepository(mongoDB)
	locationRepo := repository.NewMongoLocationRepository(mongoDB)

	busService := service.NewBusService(busRepo, hub)
	assignmentService := service.NewAssignmentService(busRepo, profileRepo, hub)
	trackingService := service.NewTrackingService(busRepo, locationRepo, hub, cfg.RecencyWindow)
	profileService := service.NewProfileService(profileRepo)

	busHandler := handlers.NewBusHandler(busService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	trackingHandler := handlers.NewTrackingHandler(trackingService, assignmentService)
	profileHandler := handlers.NewProfileHandler(profileService)

	// Initialize Fiber app with middleware
	app := fiber.New(fiber.Config{
		AppName:      "Fleet Service",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: defaultErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] [${id}] ${status} - ${method} ${path} ${latency}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Health check endpoint with database status
	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "healthy"
		if err := dbManager.HealthCheck(); err != nil {
			dbStatus = fmt.Sprintf("unhealthy: %v", err)
		}

		return c.JSON(fiber.Map{
			"status":         "ok",
			"service":        "fleet-service",
			"timestamp":      time.Now().UTC(),
			"database":       dbStatus,
			"ws_subscribers": hub.SubscriberCount(),
			"version":        "1.0.0",
		})
	})

	// API routes behind token auth
	v1 := app.Group("/api/v1", auth.Middleware([]byte(cfg.JWTSecret)))
	busHandler.RegisterRoutes(v1)
	assignmentHandler.RegisterRoutes(v1)
	trackingHandler.RegisterRoutes(v1)
	profileHandler.RegisterRoutes(v1)

	// Realtime feed on its own listener
	wsServer := ws.NewServer(hub, cfg.GetWSAddress())
	go func() {
		log.Printf("Realtime feed listening on %s/ws/updates", cfg.GetWSAddress())
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start websocket server: %v", err)
		}
	}()

	// Time-driven liveness re-check, independent of push events
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	monitor := liveness.NewMonitor(trackingService, hub, cfg.LivenessCheckInterval)
	go monitor.Run(monitorCtx)

	setupGracefulShutdown(app, wsServer, cancelMonitor)

	log.Println("=== Fleet Service ===")
	log.Printf("Server starting on %s", cfg.GetServerAddress())
	log.Printf("Health check available at http://localhost:%s/health", cfg.ServerPort)
	log.Printf("API base path: http://localhost:%s/api/v1", cfg.ServerPort)
	log.Println("Press Ctrl+C to stop the server")
	log.Println("=====================")

	if err := app.Listen(cfg.GetServerAddress()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// defaultErrorHandler handles errors and returns JSON responses
func defaultErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error: %v (Status: %d, Path: %s)", err, code, c.Path())

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"path":    c.Path(),
			"method":  c.Method(),
		},
	})
}

// setupGracefulShutdown drains both listeners and stops the liveness
// monitor on SIGINT/SIGTERM.
func setupGracefulShutdown(app *fiber.App, wsServer *ws.Server, cancelMonitor context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived signal: %v. Shutting down gracefully...", sig)

		cancelMonitor()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := wsServer.Shutdown(ctx); err != nil {
			log.Printf("Error during websocket server shutdown: %v", err)
		}

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Server shutdown complete")
	}()
}
