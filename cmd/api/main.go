package main

import (
	"context"
	"time"

	"pairchat/config"
	"pairchat/internal/handler"
	appredis "pairchat/internal/redis"
	"pairchat/internal/relay"
	"pairchat/internal/repository"
	"pairchat/internal/server"
	"pairchat/internal/services"
	"pairchat/internal/storage"
	"pairchat/pkg/database"
	"pairchat/pkg/logger"
)

const janitorInterval = time.Hour

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	log := logger.New(mode)
	logger.SetGlobalLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Errorf("database connection failed: %v", err)
		return
	}
	defer pool.Close()

	roomRepo := repository.NewRoomRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)

	var files services.FileStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Errorf("s3 client init failed: %v", err)
			return
		}
		files = services.NewS3FileStore(s3Client)
	} else {
		log.Warnf("no s3 bucket configured, using in-process file store")
		files = services.NewMemoryFileStore()
	}

	redisClient := appredis.NewClient(appredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	limiter := appredis.NewRateLimiter(redisClient, appredis.DefaultRateLimitConfig())

	authService := services.NewAuthService(cfg)
	roomService := services.NewRoomService(roomRepo, cfg, log)
	messageService := services.NewMessageService(msgRepo, files, cfg, log)
	sessionService := services.NewSessionService(roomRepo, log)
	uploadService := services.NewUploadService(files)

	hub := relay.NewHub()
	rly := relay.NewRelay(hub, roomService, messageService, limiter, log)

	go runJanitor(ctx, roomService, messageService, log)

	srv := server.New(cfg, log, pool, hub)
	srv.SetupRoutes(&server.Handlers{
		Room:    handler.NewRoomHandler(roomService),
		Message: handler.NewMessageHandler(messageService, roomService, uploadService),
		Session: handler.NewSessionHandler(sessionService),
		Upload:  handler.NewUploadHandler(uploadService),
		Relay:   relay.NewHandler(authService, rly),
	}, authService, limiter)

	if err := srv.Start(); err != nil {
		log.Errorf("server exited with error: %v", err)
	}
}

// runJanitor periodically hard-deletes rooms past their lifetime and image
// messages past their auto-delete horizon. This backs the TTL semantics;
// lazy checks on read keep stale statuses from being observable in
// between runs.
func runJanitor(ctx context.Context, rooms *services.RoomService, messages *services.MessageService, log *logger.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := rooms.DeleteExpiredRooms(ctx); err != nil {
				log.Errorf("janitor: room expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Infof("janitor: deleted %d expired rooms", n)
			}
			if n, err := messages.PurgeExpiredImages(ctx); err != nil {
				log.Errorf("janitor: image purge failed: %v", err)
			} else if n > 0 {
				log.Infof("janitor: purged %d expired images", n)
			}
		}
	}
}
