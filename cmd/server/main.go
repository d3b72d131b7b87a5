package main

// @title           Chat Realtime API
// @version         1.0
// @description     Presence, room membership, message delivery and typing signals over WebSocket
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-realtime/internal/adapters/kafka"
	"chat-realtime/internal/adapters/storage"
	"chat-realtime/internal/api/routes"
	"chat-realtime/internal/auth"
	"chat-realtime/internal/config"
	"chat-realtime/internal/database"
	"chat-realtime/internal/repositories/postgres"
	"chat-realtime/internal/services"
	"chat-realtime/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("Starting chat server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	// Initialize services
	redisService := services.NewRedisService(redisClient)

	// Presence from a previous run is stale: no connection survives a restart
	ctx := context.Background()
	if err := redisService.ClearOnlineUsers(ctx); err != nil {
		slog.Warn("Failed to clear stale presence", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	chatRepo := postgres.NewChatRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	hubOpts := []websocket.Option{
		websocket.WithPresenceMirror(redisService),
		websocket.WithSendBuffer(cfg.WebSocket.SendBuffer),
		websocket.WithEventRate(cfg.WebSocket.EventRate, cfg.WebSocket.EventBurst),
	}

	// Optional lifecycle event stream
	var events *kafka.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		events = kafka.NewEventPublisher(producer, cfg.Kafka.Topic)
		defer events.Close()
		hubOpts = append(hubOpts, websocket.WithEventSink(events))
		slog.Info("Kafka event stream enabled", "topic", cfg.Kafka.Topic)
	}

	// Optional attachment verification
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOClient(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			slog.Error("Failed to create MinIO client", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			slog.Error("Failed to prepare attachment bucket", "error", err)
			os.Exit(1)
		}
		hubOpts = append(hubOpts, websocket.WithAttachmentVerifier(store))
		slog.Info("Attachment verification enabled", "bucket", cfg.MinIO.Bucket)
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(chatRepo, messageRepo, hubOpts...)
	go hub.Run()

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Dependencies{
		Hub:            hub,
		Gate:           auth.NewGate(cfg.JWT.Secret, userRepo),
		ChatService:    services.NewChatService(chatRepo, messageRepo, userRepo),
		RateLimiter:    redisService,
		PresenceMirror: redisService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop WebSocket hub
	hub.Stop()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
