package main

import (
	"context"
	"flag"
	"log"
	"time"

	"whispr/config"
	"whispr/internal/delivery"
	"whispr/internal/handler"
	"whispr/internal/mail"
	whispr_redis "whispr/internal/redis"
	"whispr/internal/repository"
	"whispr/internal/server"
	"whispr/internal/services"
	"whispr/internal/storage"
	"whispr/pkg/database"
	"whispr/pkg/logger"
)

func main() {
	seed := flag.Bool("seed", false, "insert development users and exit")
	flag.Parse()

	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	database.Connect(cfg)
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if *seed {
		if _, err := database.Seed(nil); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		return
	}

	var presence services.PresenceStore
	if redisClient, err := whispr_redis.NewClient(cfg); err != nil {
		l.Warnf("redis unavailable, presence disabled: %s", err)
	} else {
		presence = whispr_redis.NewPresenceStore(redisClient, 5*time.Minute)
	}

	userRepo := repository.NewUserRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)

	hub := delivery.NewHub()
	defer hub.Stop()

	authService := services.NewAuthService(userRepo, mail.NewLogSender(), cfg)
	userService := services.NewUserService(userRepo, presence)
	messageService := services.NewMessageService(messageRepo, userRepo, hub, cfg.TextMaxLen)

	var uploadHandler *handler.UploadHandler
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to configure s3 storage: %v", err)
		}
		uploadHandler = handler.NewUploadHandler(services.NewUploadService(s3Client))
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Message:   handler.NewMessageHandler(messageService, userService),
		Upload:    uploadHandler,
		WebSocket: handler.NewWebSocketHandler(hub, authService, userService),
	}, authService)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server shutdown with error: %v", err)
	}
}
