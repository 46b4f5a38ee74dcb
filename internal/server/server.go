package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairchat/config"
	"pairchat/internal/handler"
	"pairchat/internal/middleware"
	"pairchat/internal/redis"
	"pairchat/internal/relay"
	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"
	"pairchat/pkg/database"
	"pairchat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	pool       *pgxpool.Pool
	hub        *relay.Hub
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Room    *handler.RoomHandler
	Message *handler.MessageHandler
	Session *handler.SessionHandler
	Upload  *handler.UploadHandler
	Relay   *relay.Handler
}

func New(cfg *config.Config, l *logger.Logger, pool *pgxpool.Pool, hub *relay.Hub) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		pool:   pool,
		hub:    hub,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if s.pool != nil {
			if err := database.HealthCheck(c.Request.Context(), s.pool); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("database unreachable", "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := middleware.AuthMiddleware(authService)
	roomLimit := middleware.RoomRateLimitMiddleware(limiter)

	rooms := s.engine.Group("/v1/rooms")
	{
		rooms.POST("", auth, roomLimit, handlers.Room.Create)
		rooms.POST("/validate", handlers.Room.Validate)
		rooms.POST("/join", auth, roomLimit, handlers.Room.Join)
		rooms.POST("/:code/reset", auth, handlers.Room.Reset)
		rooms.GET("", auth, handlers.Room.List)
	}

	// Channels are rooms addressed by their realtime room id.
	channels := s.engine.Group("/v1/channels", auth)
	{
		channels.GET("/:id/messages", handlers.Message.List)
		channels.GET("/:id/unread", handlers.Message.Unread)
	}

	sessions := s.engine.Group("/v1/sessions", auth)
	{
		sessions.GET("", handlers.Session.List)
		sessions.POST("/:code/resume", handlers.Session.Resume)
		sessions.DELETE("/:code", handlers.Session.Delete)
	}

	messages := s.engine.Group("/v1/messages", auth)
	{
		messages.POST("/file", handlers.Message.SendFile)
		messages.POST("/:id/read", handlers.Message.MarkRead)
		messages.POST("/:id/viewed", handlers.Message.MarkViewed)
	}

	uploads := s.engine.Group("/v1/uploads", auth)
	{
		uploads.POST("", handlers.Upload.Presign)
		uploads.POST("/:id/complete", handlers.Upload.Complete)
	}

	s.engine.GET("/ws", handlers.Relay.Connect)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if s.hub != nil {
		s.hub.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
