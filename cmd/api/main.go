package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/app"
	"alfredoptarigan/voice-interview/internal/config"
	"alfredoptarigan/voice-interview/internal/handlers"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("✅ Config loaded successfully")

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize telemetry", zap.Error(err))
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize application", zap.Error(err))
	}

	userHandler := handlers.NewUserHandler(application.Documents, log)
	documentHandler := handlers.NewDocumentHandler(application.Documents, cfg.Storage.MaxFileSize, log)
	interviewHandler := handlers.NewInterviewHandler(application.Sessions, log)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	server := fiber.New(fiber.Config{
		AppName:      "Voice Interview API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		BodyLimit:    handlers.BodyLimit(cfg.Storage.MaxFileSize),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(server, userHandler, documentHandler, interviewHandler)
	server.Get("/metrics", adaptor.HTTPHandler(tel.MetricsHandler))

	// Root route
	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Voice Interview API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/users/:userId",
				"POST /api/v1/users/:userId/documents",
				"GET /api/v1/users/:userId/documents",
				"PUT /api/v1/users/:userId/documents/latest",
				"POST /api/v1/users/:userId/interview/turns",
				"POST /api/v1/users/:userId/interview/playback",
				"GET /api/v1/users/:userId/interview",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))
	log.Info("📖 API Documentation", zap.String("url", "http://localhost"+addr))

	if err := server.Listen(addr); err != nil {
		log.Error("❌ Failed to start server", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Close(); err != nil {
		log.Warn("failed to close backends", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("failed to flush telemetry", zap.Error(err))
	}
}
